package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/okian/vqs/internal/domain/types"
)

// printResults writes results as indented JSON or as one table per keyword.
// A single result is encoded as an object, several as an array.
func printResults(w io.Writer, format string, results ...types.Result) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}

	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := printTable(w, res); err != nil {
			return err
		}
	}
	return nil
}

func printTable(w io.Writer, res types.Result) error {
	fmt.Fprintf(w, "== %s ==\n", res.Keyword)
	if !res.Success {
		fmt.Fprintf(w, "failed: %s (candidates: %d, skipped: %d)\n", res.Message, res.Total, res.Skipped)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tVIDEO\tVIEWS\tLIKES\tSUBSCRIBERS\tPUBLISHED\tLENGTH")
	for _, v := range res.Videos {
		published := "unknown"
		if !v.PublishedAt.IsZero() {
			published = humanize.Time(v.PublishedAt)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.Rank, v.Score, v.VideoID,
			humanize.Comma(v.Views),
			humanize.Comma(v.Likes),
			humanize.SIWithDigits(float64(v.SubscriberCount), 1, ""),
			published,
			(time.Duration(v.DurationSeconds * float64(time.Second))).Round(time.Second),
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	if s := res.Stats; s != nil {
		fmt.Fprintf(w, "scored %s of %s candidates (%s skipped): avg %d, median %d, high %d, low %d\n",
			humanize.Comma(int64(s.Count)), humanize.Comma(int64(res.Total)), humanize.Comma(int64(res.Skipped)),
			s.AverageScore, s.MedianScore, s.HighestScore, s.LowestScore)
		d := s.Distribution
		fmt.Fprintf(w, "excellent %d, good %d, average %d, poor %d\n", d.Excellent, d.Good, d.Average, d.Poor)
	}
	return nil
}
