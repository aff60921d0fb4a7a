/*
	Copyright (c) 2023 Adrian Batzill
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	logging.go: Initialize go logging, watch log file size and rotate, delete old logs

*/

package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/ricochet2200/go-disk-usage/du"
	"golang.org/x/exp/slices"
)

const (
	debugLogFile = "ms5525d.log"

	maxLogSize   = 10 * 1024 * 1024 // rotate above 10mb
	minFreeBytes = 50 * 1024 * 1024 // leave 50mb free
	maxLogFiles  = 9
)

type logFiles struct {
	dir    string
	path   string
	handle *os.File
}

var (
	myLogs       logFiles
	debugLogging atomic.Bool
)

// rotated returns the rotated log files, newest first.
func (l *logFiles) rotated() []string {
	logs := make([]string, 0)
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return logs
	}
	nums := make([]int, 0)
	for _, e := range entries {
		if n, ok := logNumber(e.Name()); ok && !slices.Contains(nums, n) {
			nums = append(nums, n)
		}
	}
	slices.Sort(nums)
	for _, n := range nums {
		logs = append(logs, filepath.Join(l.dir, debugLogFile+"."+strconv.Itoa(n)))
	}
	return logs
}

func logNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, debugLogFile+".") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, debugLogFile+"."))
	return n, err == nil
}

func (l *logFiles) rotate() {
	logs := l.rotated()

	// rename suffix, remove if > maxLogFiles
	for i := len(logs) - 1; i >= 0; i-- {
		logNum, _ := logNumber(filepath.Base(logs[i]))
		if logNum >= maxLogFiles {
			os.Remove(logs[i])
		} else {
			os.Rename(logs[i], filepath.Join(l.dir, debugLogFile+"."+strconv.Itoa(logNum+1)))
		}
	}

	// Now rename current log file and re-open
	os.Rename(l.path, l.path+".1")
	l.open()
}

func (l *logFiles) deleteOldest() int64 {
	logs := l.rotated()
	if len(logs) == 0 {
		return 0
	}
	oldest := logs[len(logs)-1]
	stat, err := os.Stat(oldest)
	if err != nil {
		return 0
	}
	if err := os.Remove(oldest); err != nil {
		return 0
	}
	log.Printf("Deleted old log %s (%s)\n", oldest, humanize.Bytes(uint64(stat.Size())))
	return stat.Size()
}

func (l *logFiles) check() {
	if st, err := os.Stat(l.path); err == nil && st.Size() > maxLogSize {
		l.rotate()
	}
	usage := du.NewDiskUsage(l.dir)
	freeBytes := int64(usage.Free())
	for freeBytes < minFreeBytes {
		deleted := l.deleteOldest()
		if deleted == 0 {
			break
		}
		freeBytes += deleted
	}
}

func (l *logFiles) watch(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		l.check()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (l *logFiles) open() {
	oldFp := l.handle
	l.path = filepath.Join(l.dir, debugLogFile)
	fp, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open '%s': %s\n", l.path, err.Error())
	} else {
		l.handle = fp
		log.SetOutput(io.MultiWriter(fp, os.Stdout))
	}
	if oldFp != nil {
		oldFp.Close()
	}
}

func initLogging(ctx context.Context, dir string, debug bool) {
	myLogs = logFiles{dir: dir}
	debugLogging.Store(debug)
	myLogs.open()
	go myLogs.watch(ctx)
}

func logDbg(msg string, args ...any) {
	if debugLogging.Load() {
		log.Printf(msg, args...)
	}
}
