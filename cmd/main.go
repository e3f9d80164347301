package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/cactusdynamics/keyhist"
	flags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot/vg"
)

type options struct {
	Dir              string  `short:"d" long:"dir" default:"../build/" description:"Directory searched recursively for keypoint files"`
	Pattern          string  `long:"pattern" default:"*_keypoints.csv" description:"File name pattern of the keypoint files"`
	Output           string  `short:"o" long:"output" description:"Write the figure to this file (png, svg, pdf, ...) instead of displaying it"`
	Title            string  `short:"t" long:"title" description:"Title shown above the first panel"`
	Bins             int     `long:"bins" default:"100" description:"Number of histogram bins per panel"`
	Rows             int     `long:"rows" default:"3" description:"Rows in the panel grid"`
	Cols             int     `long:"cols" default:"3" description:"Columns in the panel grid"`
	Grow             bool    `long:"grow" description:"Add rows when there are more detectors than panels instead of failing"`
	Width            float64 `long:"width" default:"12" description:"Figure width in inches"`
	Height           float64 `long:"height" default:"9" description:"Figure height in inches"`
	CSV              bool    `long:"csv" description:"Parse input files as strict CSV instead of whitespace/comma separated values"`
	RejectDuplicates bool    `long:"reject-duplicates" description:"Fail if two files produce the same detector label"`
	Host             string  `long:"host" default:"localhost" description:"Host to serve the figure on"`
	Port             uint16  `short:"p" long:"port" default:"5274" description:"Port to serve the figure on"`
	NoBrowser        bool    `long:"no-browser" description:"Do not open the browser automatically"`
	Verbose          bool    `short:"v" long:"verbose" description:"Enable debug logging"`
}

func (o options) loader() *keyhist.Loader {
	loader := keyhist.NewLoader(o.Dir)
	loader.Pattern = o.Pattern
	if o.CSV {
		loader.Format = keyhist.FormatCSV
	}
	if o.RejectDuplicates {
		loader.Duplicates = keyhist.DuplicateReject
	}
	return loader
}

func (o options) figureOptions() keyhist.FigureOptions {
	figureOptions := keyhist.DefaultFigureOptions()
	figureOptions.Title = o.Title
	figureOptions.Bins = o.Bins
	figureOptions.Grid = keyhist.Grid{Rows: o.Rows, Cols: o.Cols}
	figureOptions.GrowGrid = o.Grow
	figureOptions.Width = vg.Length(o.Width) * vg.Inch
	figureOptions.Height = vg.Length(o.Height) * vg.Inch
	return figureOptions
}

func run(ctx context.Context, opts options) error {
	sets, err := opts.loader().Load(ctx)
	if err != nil {
		return err
	}

	if sets.Len() == 0 {
		logrus.Warnf("no files matching %s found under %s", opts.Pattern, opts.Dir)
	}

	figure, err := keyhist.NewFigure(sets, opts.figureOptions())
	if err != nil {
		return err
	}

	if opts.Output != "" {
		return figure.Save(opts.Output)
	}

	server, err := keyhist.NewHttpServer(figure, opts.Host, opts.Port)
	if err != nil {
		return err
	}

	return server.Run(ctx, !opts.NoBrowser)
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		logrus.WithError(err).Error("keyhist failed")
		stop()
		os.Exit(1)
	}
}
