package journal

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var mu sync.Mutex

// IST timestamps, matching the tradebook
var ist = time.FixedZone("IST", 19800)

// Entry is one coach run, appended to a daily JSONL file. The journal
// makes runs comparable over time without re-reading old reports.
type Entry struct {
	Time           string         `json:"time"`
	RunID          string         `json:"run_id"`
	Tradebook      string         `json:"tradebook"`
	Executions     int            `json:"executions"`
	ClosedTrades   int            `json:"closed_trades"`
	OpenLots       int            `json:"open_lots"`
	UnmatchedSells int            `json:"unmatched_sells"`
	WinRate        float64        `json:"win_rate"`
	TotalPnL       float64        `json:"total_pnl"`
	Insights       int            `json:"insights"`
	ReportPath     string         `json:"report_path,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

func journalDir() string {
	if v := os.Getenv("COACH_JOURNAL_DIR"); v != "" {
		return v
	}
	return "journal"
}

func dailyFilepath(t time.Time) string {
	d := t.In(ist).Format("2006-01-02")
	return filepath.Join(journalDir(), d+".txt")
}

// Append records a run in today's journal file.
func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().In(ist)
	e.Time = now.Format("2006-01-02 15:04:05")
	p := dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, _ := json.Marshal(e)
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// Today reads back the entries journaled so far today.
func Today() ([]Entry, error) {
	mu.Lock()
	defer mu.Unlock()
	data, err := os.ReadFile(dailyFilepath(time.Now().In(ist)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// CompressOlder gzips journal files older than retentionDays.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := journalDir()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, e2 := os.Stat(gz); e2 == nil {
			return os.Remove(p)
		}

		in, e3 := os.Open(p)
		if e3 != nil {
			return nil
		}
		defer in.Close()

		out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if e4 != nil {
			return nil
		}
		gw := gzip.NewWriter(out)
		if _, e5 := io.Copy(gw, in); e5 == nil {
			_ = gw.Close()
			_ = out.Close()
			return os.Remove(p)
		}
		_ = gw.Close()
		_ = out.Close()
		return nil
	})
}
