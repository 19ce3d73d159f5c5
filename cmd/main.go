package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/everest-org/everest"
	"github.com/everest-org/everest/config"
	"github.com/everest-org/everest/entity"
	"github.com/everest-org/everest/querying"
	"github.com/everest-org/everest/representer"
	"github.com/everest-org/everest/testmodel"
)

func main() {
	configFile := flag.String("config", "", "file for service configuration")
	envFile := flag.String("env", "", "file for environment overrides")
	rootName := flag.String("collection", "my-entities", "root collection to operate on")
	inFile := flag.String("in", "", "collection document to load")
	outFile := flag.String("out", "", "file to dump the collection to, defaults to stdout")
	format := flag.String("format", "xml", "document format, xml or json")
	filterStr := flag.String("filter", "", "filter criteria e.g. text:starts-with:\"abc\"")
	orderStr := flag.String("order", "", "order criteria e.g. number:desc")
	start := flag.Int("start", 0, "first member of the slice to dump")
	size := flag.Int("size", 0, "slice size, 0 dumps everything")

	flag.Parse()

	var contentType string
	switch *format {
	case "xml":
		contentType = representer.ContentTypeXML
	case "json":
		contentType = representer.ContentTypeJSON
	default:
		panic(fmt.Errorf("unknown format %q", *format))
	}

	var env config.GraphEnv
	if *envFile != "" {
		env = config.LoadEnv(*envFile)
	} else {
		env = config.LoadEnv()
	}

	var svc *everest.Service
	var err error
	if *configFile != "" {
		cfg, err := config.LoadFile(*configFile)
		if err != nil {
			panic(fmt.Errorf("unable to read configuration: %w", err))
		}
		svc, err = everest.FromConfig(cfg, env)
		if err != nil {
			panic(fmt.Errorf("unable to build service: %w", err))
		}
	} else {
		svc, err = everest.New()
		if err != nil {
			panic(fmt.Errorf("unable to build service: %w", err))
		}
	}

	if err := testmodel.Register(svc); err != nil {
		panic(fmt.Errorf("unable to register resources: %w", err))
	}

	ctx := context.Background()
	if err := svc.Initialize(ctx); err != nil {
		panic(fmt.Errorf("unable to initialize repositories: %w", err))
	}
	defer svc.Close(ctx)

	if *inFile != "" {
		fd, err := os.Open(*inFile)
		if err != nil {
			panic(fmt.Errorf("unable to open input document: %w", err))
		}
		err = svc.Load(*rootName, contentType, fd)
		fd.Close()
		if err != nil {
			panic(fmt.Errorf("unable to load collection: %w", err))
		}
	}

	col, err := svc.Collection(*rootName)
	if err != nil {
		panic(fmt.Errorf("unable to open collection: %w", err))
	}

	if *filterStr != "" {
		spec, err := querying.ParseFilter(*filterStr)
		if err != nil {
			panic(fmt.Errorf("unable to parse filter: %w", err))
		}
		if err := col.SetFilter(spec); err != nil {
			panic(fmt.Errorf("unable to apply filter: %w", err))
		}
	}
	if *orderStr != "" {
		spec, err := querying.ParseOrder(*orderStr)
		if err != nil {
			panic(fmt.Errorf("unable to parse order: %w", err))
		}
		if err := col.SetOrder(spec); err != nil {
			panic(fmt.Errorf("unable to apply order: %w", err))
		}
	}
	if *size > 0 {
		if err := col.SetSlice(&entity.Slice{Start: *start, Stop: *start + *size}); err != nil {
			panic(fmt.Errorf("unable to apply slice: %w", err))
		}
	}

	out := os.Stdout
	if *outFile != "" {
		out, err = os.Create(*outFile)
		if err != nil {
			panic(fmt.Errorf("unable to create output file: %w", err))
		}
		defer out.Close()
	}

	rep, err := svc.Representer(contentType)
	if err != nil {
		panic(fmt.Errorf("unable to build representer: %w", err))
	}
	if err := rep.WriteCollection(out, col); err != nil {
		panic(fmt.Errorf("unable to dump collection: %w", err))
	}
}
