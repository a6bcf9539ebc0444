package logger

import (
	"fmt"
	"time"
)

// ANSI color codes. Output goes to a terminal; modern Windows consoles
// handle these fine.
const (
	colReset  = "\033[0m"
	colRed    = "\033[31m"
	colGreen  = "\033[32m"
	colYellow = "\033[33m"
	colCyan   = "\033[36m"
	colGray   = "\033[90m"
	colBold   = "\033[1m"
)

func stamp() string {
	return time.Now().Format("15:04:05")
}

func emit(color, level, tag, msg string) {
	fmt.Printf("%s%s%s %s%-5s%s %s[%s]%s %s\n",
		colGray, stamp(), colReset,
		color, level, colReset,
		colBold, tag, colReset, msg)
}

// Info logs an informational message under a component tag.
func Info(tag, msg string) {
	emit(colCyan, "INFO", tag, msg)
}

// Success logs a completed operation.
func Success(tag, msg string) {
	emit(colGreen, "OK", tag, msg)
}

// Warn logs a recoverable problem.
func Warn(tag, msg string) {
	emit(colYellow, "WARN", tag, msg)
}

// Error logs a failure.
func Error(tag, msg string) {
	emit(colRed, "ERROR", tag, msg)
}

// Section prints a visual divider with a title.
func Section(title string) {
	fmt.Printf("\n%s--- %s ---%s\n", colBold, title, colReset)
}

// Stats prints a key/value pair aligned for summary blocks.
func Stats(key string, value interface{}) {
	fmt.Printf("  %s%-24s%s %v\n", colGray, key, colReset, value)
}

// Server announces the listen address.
func Server(addr string) {
	fmt.Printf("\n%s  Listening on http://%s%s\n\n", colGreen, addr, colReset)
}

// Banner prints the startup banner.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	fmt.Printf("%s%s", colCyan, colBold)
	fmt.Println()
	fmt.Println("  SpawnPK Tradepost Analyzer")
	fmt.Printf("  version %s", version)
	fmt.Printf("%s\n\n", colReset)
}
