package metrics

import (
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// SaveROCPlot renders one or more ROC curves to an image file (format
// chosen by extension, e.g. .png or .svg). A dashed diagonal marks the
// random classifier. Curves are drawn in name order for stable legends.
func SaveROCPlot(path string, curves map[string]*ROC) error {
	if len(curves) == 0 {
		return errors.NewValueError("SaveROCPlot", "no curves to plot")
	}

	p := plot.New()
	p.Title.Text = "ROC curves"
	p.X.Label.Text = "false positive rate"
	p.Y.Label.Text = "true positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "SaveROCPlot: diagonal")
	}
	diag.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diag)

	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		roc := curves[name]
		xys := make(plotter.XYs, len(roc.FPR))
		for j := range roc.FPR {
			xys[j] = plotter.XY{X: roc.FPR[j], Y: roc.TPR[j]}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return errors.Wrapf(err, "SaveROCPlot: curve %q", name)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.Legend.Top = false
	p.Legend.Left = false

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrap(err, "SaveROCPlot: save")
	}
	return nil
}
