package constants

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of an extraction session.
type SessionStatus string

const (
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

// Per-file status vocabulary. Terminal strings carry the elapsed seconds.
const (
	FileStatusPending    = "pending"
	FileStatusProcessing = "Processing..."
)

func FileStatusCompleted(d time.Duration) string {
	return fmt.Sprintf("Completed (%ss)", seconds(d))
}

func FileStatusDuplicate(d time.Duration) string {
	return fmt.Sprintf("Skipped (Duplicate) (%ss)", seconds(d))
}

func FileStatusImageFailed(filename string) string {
	return "Skipped (Image Conversion Failed): " + filename
}

func FileStatusNoData(d time.Duration) string {
	return fmt.Sprintf("Failed (AI returned no data) (%ss)", seconds(d))
}

func FileStatusError(msg string, d time.Duration) string {
	return fmt.Sprintf("Error: %s (%ss)", msg, seconds(d))
}

// seconds renders a duration rounded to 2 decimals without trailing zeros (1.5, 12.34, 3).
func seconds(d time.Duration) string {
	s := fmt.Sprintf("%.2f", d.Seconds())
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s += "0"
	}
	return s
}
