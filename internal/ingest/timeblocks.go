package ingest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"lifetrack/internal/model"
)

var reTimeBlock = regexp.MustCompile(`(?m)^- \[x\] (\d{2}:\d{2}) - (\d{2}:\d{2})(?:[:\s]*)(.+?)(?:\s✅.*)?$`)

// ParseTimeBlocks extracts completed time blocks from one daily note.
// Blocks whose end time precedes the start wrap to the next day.
func ParseTimeBlocks(content string, date time.Time) []model.TimeBlock {
	matches := reTimeBlock.FindAllStringSubmatch(content, -1)
	blocks := make([]model.TimeBlock, 0, len(matches))
	for _, m := range matches {
		start, err1 := clockOn(date, m[1])
		end, err2 := clockOn(date, m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		if end.Before(start) {
			end = end.AddDate(0, 0, 1)
		}
		blocks = append(blocks, model.TimeBlock{
			Date:     date,
			Start:    start,
			End:      end,
			Duration: end.Sub(start),
			Activity: trimActivity(m[3]),
		})
	}
	return blocks
}

func clockOn(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

func trimActivity(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

// WalkDailyNotes reads `YYYY-MM-DD.md` files between start and end
// inclusive, newest first, skipping missing days.
func WalkDailyNotes(dir string, start, end time.Time) ([]model.TimeBlock, error) {
	if end.Before(start) {
		return nil, errors.New("end date before start date")
	}
	var blocks []model.TimeBlock
	for day := end; !day.Before(start); day = day.AddDate(0, 0, -1) {
		path := filepath.Join(dir, day.Format("2006-01-02")+".md")
		content, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		blocks = append(blocks, ParseTimeBlocks(string(content), day)...)
	}
	return blocks, nil
}
