package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/okian/vqs/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
)

func execute(args ...string) (string, string, error) {
	cmd := rootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestGenerateCommand(t *testing.T) {
	convey.Convey("Given the generate command", t, func() {
		convey.Convey("When writing to stdout", func() {
			out, _, err := execute("generate", "--keyword", "pets", "--count", "3", "--seed", "9")

			convey.Convey("Then a YAML candidate file is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "keyword: pets")
				convey.So(out, convey.ShouldContainSubstring, "videos:")
				convey.So(strings.Count(out, "videoId:"), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When writing to a file", func() {
			path := filepath.Join(t.TempDir(), "pets.yaml")
			_, errOut, err := execute("generate", "--keyword", "pets", "--count", "4", "--out", path)

			convey.Convey("Then the file exists and the count is reported", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(errOut, convey.ShouldContainSubstring, "wrote 4 candidates")
				_, statErr := os.Stat(path)
				convey.So(statErr, convey.ShouldBeNil)
			})
		})
	})
}

func TestRankCommand(t *testing.T) {
	convey.Convey("Given a generated candidate file", t, func() {
		path := filepath.Join(t.TempDir(), "cooking.yaml")
		_, _, err := execute("generate", "--keyword", "cooking", "--count", "40", "--seed", "3", "--out", path)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When ranking as JSON with a limit", func() {
			out, _, err := execute("rank", "cooking", "--candidates", path, "--format", "json", "--limit", "5")

			convey.Convey("Then the result lists the top five of all forty", func() {
				convey.So(err, convey.ShouldBeNil)
				var res types.Result
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.Success, convey.ShouldBeTrue)
				convey.So(res.Keyword, convey.ShouldEqual, "cooking")
				convey.So(len(res.Videos), convey.ShouldEqual, 5)
				convey.So(res.Total, convey.ShouldEqual, 40)
				convey.So(res.Stats.Count, convey.ShouldEqual, 40)
				convey.So(res.Videos[0].Rank, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When ranking as a table", func() {
			out, _, err := execute("rank", "cooking", "--candidates", path, "--limit", "3")

			convey.Convey("Then a table with stats is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "== cooking ==")
				convey.So(out, convey.ShouldContainSubstring, "RANK")
				convey.So(out, convey.ShouldContainSubstring, "scored 40 of 40 candidates")
			})
		})

		convey.Convey("When ranking a keyword without candidates", func() {
			out, _, err := execute("rank", "travel", "--candidates", path, "--format", "json")

			convey.Convey("Then the failure is printed and returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"success": false`)
				convey.So(out, convey.ShouldContainSubstring, "no candidates found for keyword")
			})
		})

		convey.Convey("When asking for an unknown format", func() {
			_, _, err := execute("rank", "cooking", "--candidates", path, "--format", "xml")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "unknown format")
			})
		})
	})

	convey.Convey("Given no candidate source", t, func() {
		_, _, err := execute("rank", "cooking", "--config", writeConfig(t, "log_level: warn\n"))

		convey.Convey("Then the command fails", func() {
			convey.So(errors.Is(err, errNoSource), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an invalid config file", t, func() {
		_, _, err := execute("rank", "cooking", "--config", writeConfig(t, "default_limit: 0\n"))

		convey.Convey("Then loading fails", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "load config")
		})
	})
}

func TestBatchCommand(t *testing.T) {
	convey.Convey("Given a generated candidate file", t, func() {
		path := filepath.Join(t.TempDir(), "cooking.yaml")
		_, _, err := execute("generate", "--keyword", "cooking", "--count", "25", "--out", path)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When ranking several keywords", func() {
			out, _, err := execute("batch", "cooking", "travel", "COOKING", "--candidates", path, "--limit", "2")

			convey.Convey("Then each distinct keyword gets a section", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(strings.Count(out, "== cooking =="), convey.ShouldEqual, 1)
				convey.So(out, convey.ShouldContainSubstring, "== travel ==")
				convey.So(out, convey.ShouldContainSubstring, "failed: no candidates found for keyword")
			})
		})

		convey.Convey("When ranking as JSON", func() {
			out, _, err := execute("batch", "cooking", "travel", "--candidates", path, "--format", "json")

			convey.Convey("Then an array of results in input order is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				var results []types.Result
				convey.So(json.Unmarshal([]byte(out), &results), convey.ShouldBeNil)
				convey.So(len(results), convey.ShouldEqual, 2)
				convey.So(results[0].Keyword, convey.ShouldEqual, "cooking")
				convey.So(results[0].Success, convey.ShouldBeTrue)
				convey.So(results[1].Success, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When no keyword can be ranked", func() {
			_, _, err := execute("batch", "travel", "--candidates", path)

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a refresh does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vqs.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
