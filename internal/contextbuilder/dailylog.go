package contextbuilder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// dailyLogExcerptChars bounds how much of today's log file phase A carries
// into the context, a tail-window similar to the verbatim history count.
const dailyLogExcerptChars = 2000

// LoadDailyLogExcerpt returns the tail of today's append-only daily log
// file under dir, or "" if the file doesn't exist yet. Reading never
// creates the file or the directory.
func LoadDailyLogExcerpt(dir string, now time.Time) string {
	if dir == "" {
		return ""
	}
	path := dailyLogPath(dir, now)
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(string(data))
	if len(text) <= dailyLogExcerptChars {
		return text
	}
	return text[len(text)-dailyLogExcerptChars:]
}

// AppendDailyLog records one timestamped activity line for today, creating
// dir and today's file on first use. Best-effort: I/O errors are returned
// so the caller can log them, never meant to block a reply.
func AppendDailyLog(dir string, now time.Time, line string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(dailyLogPath(dir, now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "[%s] %s\n", now.Format("15:04:05"), line)
	return err
}

func dailyLogPath(dir string, now time.Time) string {
	return filepath.Join(dir, now.Format("2006-01-02")+".md")
}
