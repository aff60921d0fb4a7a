// baroplot renders the pressure and temperature series recorded by ms5525d.
//
//	baroplot -db /var/log/ms5525.sqlite -since 2h -out airdata
//
// writes airdata_pressure.png and airdata_temperature.png.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/b3nn0/ms5525/datalog"
)

func series(rows []datalog.Row, value func(datalog.Row) float64) plotter.XYs {
	pts := make(plotter.XYs, len(rows))
	for i, r := range rows {
		pts[i].X = float64(r.Time.Unix())
		pts[i].Y = value(r)
	}
	return pts
}

func render(title, ylabel, file string, pts plotter.XYs) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = ylabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04:05"}

	if err := plotutil.AddLinePoints(p, ylabel, pts); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, file)
}

func main() {
	db := flag.String("db", "/var/log/ms5525.sqlite", "ms5525d data log")
	since := flag.Duration("since", time.Hour, "how far back to plot")
	out := flag.String("out", "airdata", "output file prefix")
	flag.Parse()

	l, err := datalog.Open(*db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't open %s: %s\n", *db, err)
		os.Exit(1)
	}
	defer l.Close()

	rows, err := l.Since(time.Now().Add(-*since))
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't read %s: %s\n", *db, err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Fprintf(os.Stderr, "no samples in the last %s\n", *since)
		os.Exit(1)
	}

	pressure := series(rows, func(r datalog.Row) float64 { return r.Pressure })
	if err := render("MS5525 differential pressure", "Pa", *out+"_pressure.png", pressure); err != nil {
		panic(err)
	}
	temperature := series(rows, func(r datalog.Row) float64 { return r.Temperature })
	if err := render("MS5525 temperature", "deg C", *out+"_temperature.png", temperature); err != nil {
		panic(err)
	}
	fmt.Printf("plotted %d samples from %s to %s\n", len(rows),
		rows[0].Time.Format(time.RFC3339), rows[len(rows)-1].Time.Format(time.RFC3339))
}
