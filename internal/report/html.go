package report

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Bar colors by invocation outcome.
const (
	colorOK     = "#91cc75"
	colorFix    = "#fac858"
	colorFailed = "#ee6666"
)

// labelRotate tilts X axis labels so long file names stay readable.
const labelRotate = 45

// RenderHTML writes the report as an interactive HTML bar chart of
// per-invocation durations.
func RenderHTML(w io.Writer, rep *RunReport) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "protoforge run",
			Subtitle: Summary(rep),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Invocation",
			AxisLabel: &opts.AxisLabel{
				Rotate: labelRotate,
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Duration (ms)"}),
	)

	labels, data := chartSeries(rep)
	bar.SetXAxis(labels)
	bar.AddSeries("Duration (ms)", data)

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}

// chartSeries flattens the report into per-invocation duration bars,
// colored green for success, yellow for fixer steps, red for failures.
func chartSeries(rep *RunReport) ([]string, []opts.BarData) {
	labels := make([]string, 0, rep.InvocationCount())
	data := make([]opts.BarData, 0, rep.InvocationCount())

	for _, target := range rep.TargetReports {
		for _, inv := range target.Invocations {
			labels = append(labels, chartLabel(target.Name, inv))
			data = append(data, opts.BarData{
				Value:     float64(inv.Duration) / float64(time.Millisecond),
				ItemStyle: &opts.ItemStyle{Color: barColor(inv)},
			})
		}
	}

	return labels, data
}

func chartLabel(targetName string, inv InvocationResult) string {
	if inv.Kind == KindFix {
		return fmt.Sprintf("%s fixer", targetName)
	}

	return fmt.Sprintf("%s (%s)", filepath.Base(inv.File), targetName)
}

func barColor(inv InvocationResult) string {
	switch {
	case !inv.OK():
		return colorFailed
	case inv.Kind == KindFix:
		return colorFix
	default:
		return colorOK
	}
}
