package scoring_test

import (
	"errors"
	"math"
	"testing"

	scoring "github.com/okian/vqs/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestConfig_Validate(t *testing.T) {
	Convey("Given the default scoring config", t, func() {
		cfg := scoring.DefaultConfig()

		Convey("Then it should be valid", func() {
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("And its weights should sum to one", func() {
			sum := cfg.EngagementWeight + cfg.VelocityWeight + cfg.AuthorityWeight + cfg.QualityWeight
			So(sum, ShouldAlmostEqual, 1.0, 1e-12)
		})

		Convey("When the weights do not sum to one", func() {
			cfg.QualityWeight = 0.30

			Convey("Then validation should fail", func() {
				err := cfg.Validate()
				So(err, ShouldNotBeNil)
				So(errors.Is(err, scoring.ErrInvalidConfig), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "sum to 1.0")
			})
		})

		Convey("When a weight is negative", func() {
			cfg.EngagementWeight = 0.70
			cfg.VelocityWeight = -0.10

			Convey("Then validation should fail", func() {
				So(errors.Is(cfg.Validate(), scoring.ErrInvalidConfig), ShouldBeTrue)
			})
		})

		Convey("When table thresholds are not increasing", func() {
			cfg.Recency.Steps = []scoring.Breakpoint{
				{Threshold: 168, Multiplier: 1.5},
				{Threshold: 24, Multiplier: 2.0},
			}

			Convey("Then validation should fail", func() {
				err := cfg.Validate()
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "recency")
			})
		})

		Convey("When a multiplier is zero", func() {
			cfg.ChannelSize.Steps[0].Multiplier = 0

			Convey("Then validation should fail", func() {
				err := cfg.Validate()
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "channel_size")
			})
		})

		Convey("When the curve is flat", func() {
			cfg.CurveSteepness = 0

			Convey("Then validation should fail", func() {
				So(cfg.Validate(), ShouldNotBeNil)
			})
		})

		Convey("When a value is not a finite number", func() {
			nan, inf := math.NaN(), math.Inf(1)
			cases := []struct {
				name  string
				field string
				set   func(c *scoring.Config)
			}{
				{"NaN steepness", "curve_steepness", func(c *scoring.Config) { c.CurveSteepness = nan }},
				{"infinite steepness", "curve_steepness", func(c *scoring.Config) { c.CurveSteepness = inf }},
				{"NaN center", "curve_center", func(c *scoring.Config) { c.CurveCenter = nan }},
				{"NaN default confidence", "default_confidence", func(c *scoring.Config) { c.DefaultConfidence = nan }},
				{"NaN weight", "velocity weight", func(c *scoring.Config) { c.VelocityWeight = nan }},
				{"NaN channel multiplier", "channel_size", func(c *scoring.Config) { c.ChannelSize.Steps[1].Multiplier = nan }},
				{"infinite recency multiplier", "recency", func(c *scoring.Config) { c.Recency.Steps[0].Multiplier = inf }},
				{"NaN channel fallback", "channel_size", func(c *scoring.Config) { c.ChannelSize.Fallback = nan }},
				{"infinite recency fallback", "recency", func(c *scoring.Config) { c.Recency.Fallback = inf }},
				{"NaN threshold", "recency", func(c *scoring.Config) { c.Recency.Steps[2].Threshold = nan }},
				{"infinite threshold", "channel_size", func(c *scoring.Config) {
					c.ChannelSize.Steps[len(c.ChannelSize.Steps)-1].Threshold = inf
				}},
			}

			Convey("Then validation should reject each of them", func() {
				for _, tc := range cases {
					c := scoring.DefaultConfig()
					tc.set(&c)
					err := c.Validate()
					So(err, ShouldNotBeNil)
					So(errors.Is(err, scoring.ErrInvalidConfig), ShouldBeTrue)
					So(err.Error(), ShouldContainSubstring, tc.field)
				}
			})

			Convey("And a scorer cannot be built from them", func() {
				c := scoring.DefaultConfig()
				c.CurveSteepness = nan
				_, err := scoring.New(scoring.WithConfig(c))
				So(errors.Is(err, scoring.ErrInvalidConfig), ShouldBeTrue)
			})
		})

		Convey("When building a scorer from an invalid config", func() {
			cfg.CurveCenter = 2
			_, err := scoring.New(scoring.WithConfig(cfg))

			Convey("Then construction should fail", func() {
				So(errors.Is(err, scoring.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}

func TestTable_Lookup(t *testing.T) {
	Convey("Given the default breakpoint tables", t, func() {
		cfg := scoring.DefaultConfig()

		Convey("Then channel size uses strict upper bounds", func() {
			So(cfg.ChannelSize.Below(0), ShouldEqual, 1.5)
			So(cfg.ChannelSize.Below(999), ShouldEqual, 1.5)
			So(cfg.ChannelSize.Below(1_000), ShouldEqual, 1.3)
			So(cfg.ChannelSize.Below(99_999), ShouldEqual, 1.1)
			So(cfg.ChannelSize.Below(500_000), ShouldEqual, 1.0)
			So(cfg.ChannelSize.Below(9_999_999), ShouldEqual, 0.9)
			So(cfg.ChannelSize.Below(10_000_000), ShouldEqual, 0.8)
		})

		Convey("And recency uses inclusive upper bounds", func() {
			So(cfg.Recency.AtMost(1), ShouldEqual, 2.0)
			So(cfg.Recency.AtMost(24), ShouldEqual, 2.0)
			So(cfg.Recency.AtMost(25), ShouldEqual, 1.5)
			So(cfg.Recency.AtMost(168), ShouldEqual, 1.5)
			So(cfg.Recency.AtMost(720), ShouldEqual, 1.2)
			So(cfg.Recency.AtMost(8760), ShouldEqual, 0.8)
			So(cfg.Recency.AtMost(8761), ShouldEqual, 0.5)
		})

		Convey("And an empty table always returns its fallback", func() {
			tbl := scoring.Table{Fallback: 0.7}
			So(tbl.Below(42), ShouldEqual, 0.7)
			So(tbl.AtMost(42), ShouldEqual, 0.7)
		})
	})
}
