/*
Example code showing how to compute annotation consensus scores across
several projects of an exported vector dataset
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	consensus "github.com/swdee/go-consensus"
	"github.com/swdee/go-consensus/agreement"
	"github.com/swdee/go-consensus/dataset"
	"github.com/swdee/go-consensus/report"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	dataDir := flag.String("d", "../data/consensus/", "Dataset directory holding one subdirectory per project")
	projectList := flag.String("p", "", "Comma separated list of projects to compare, defaults to every project in the dataset")
	projectFile := flag.String("pf", "", "Text file listing projects to compare, one per line")
	annotType := flag.String("t", "bbox", "Annotation type to compare, choose bbox, polygon or point")
	imageFile := flag.String("i", "", "Text file listing the images to compare, one per line")
	outFile := flag.String("o", "consensus.csv", "Output CSV file, use - for stdout")
	dbFile := flag.String("db", "", "SQLite database file to save the run to")
	workers := flag.Int("w", 0, "Number of images to match concurrently, defaults to the number of CPUs")
	configFile := flag.String("c", "", "JSON file with consensus parameters")
	disjoint := flag.Bool("disjoint", false, "Match same class areal instances that do not overlap")
	summary := flag.Bool("summary", false, "Print score summaries per project, annotator and class")
	pairwise := flag.Bool("agreement", false, "Print the pairwise project agreement matrix")
	minIoU := flag.Float64("min-iou", agreement.DefaultParams().MinIoU, "Minimum IoU for pairwise agreement matches")
	maxDist := flag.Float64("max-dist", agreement.DefaultParams().MaxPointDistance, "Maximum point distance for pairwise agreement matches")

	flag.Parse()

	params := consensus.DefaultParams()

	if *configFile != "" {
		var err error
		params, err = consensus.LoadParams(*configFile)

		if err != nil {
			log.Fatalf("Error loading parameters: %v\n", err)
		}
	}

	// flags given on the command line override the parameters file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "w":
			params.Workers = *workers
		case "disjoint":
			params.MatchDisjoint = *disjoint
		}
	})

	if params.Workers < 1 {
		log.Fatal("Number of workers must be at least 1")
	}

	if *imageFile != "" {
		images, err := dataset.LoadList(*imageFile)

		if err != nil {
			log.Fatalf("Error loading image list: %v\n", err)
		}

		params.Images = images
	}

	projects, err := selectProjects(*projectList, *projectFile)

	if err != nil {
		log.Fatalf("Error loading project list: %v\n", err)
	}

	typ, err := consensus.ParseAnnotationType(*annotType)

	if err != nil {
		log.Fatal(err)
	}

	start := time.Now()

	ds, err := dataset.Load(*dataDir, projects)

	if err != nil {
		log.Fatalf("Error loading dataset: %v\n", err)
	}

	// every loaded project takes part in scoring even when it has no
	// instances of the selected type
	params.Projects = ds.Projects

	log.Printf("Loaded %d instances of %d projects in %s\n", len(ds.Rows),
		len(ds.Projects), time.Since(start).String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start = time.Now()

	table, err := consensus.Run(ctx, ds.Rows, typ, params)

	if err != nil {
		log.Fatalf("Error computing consensus: %v\n", err)
	}

	log.Printf("Scored %d instances on %d images in %s\n", len(table.Records),
		len(table.Images()), time.Since(start).String())

	if err := writeTable(*outFile, table); err != nil {
		log.Fatalf("Error writing CSV: %v\n", err)
	}

	if *dbFile != "" {
		store, err := report.OpenStore(*dbFile)

		if err != nil {
			log.Fatalf("Error opening database: %v\n", err)
		}

		defer store.Close()

		runID, err := store.SaveRun(ctx, typ, table)

		if err != nil {
			log.Fatalf("Error saving run: %v\n", err)
		}

		log.Printf("Saved run %s to %s\n", runID, *dbFile)
	}

	if *summary {
		printSummaries("project", report.ByProject(table))
		printSummaries("annotator", report.ByAnnotator(table))
		printSummaries("class", report.ByClass(table))
	}

	if *pairwise {
		aparams := agreement.Params{MinIoU: *minIoU, MaxPointDistance: *maxDist}

		matrix, err := agreement.Compute(ctx, ds.Rows, typ, ds.Projects, aparams)

		if err != nil {
			log.Fatalf("Error computing pairwise agreement: %v\n", err)
		}

		printAgreement(matrix)
	}
}

// selectProjects combines the comma separated project list with the
// projects listed in file.  Each project is kept once, in first seen order.
func selectProjects(list, file string) ([]string, error) {

	names := strings.Split(list, ",")

	if file != "" {
		listed, err := dataset.LoadList(file)

		if err != nil {
			return nil, err
		}

		names = append(names, listed...)
	}

	var projects []string
	seen := make(map[string]bool)

	for _, p := range names {
		if p = strings.TrimSpace(p); p == "" || seen[p] {
			continue
		}

		seen[p] = true
		projects = append(projects, p)
	}

	return projects, nil
}

// writeTable writes the table as CSV to file or stdout
func writeTable(file string, table *consensus.Table) error {

	var w io.Writer = os.Stdout

	if file != "-" {
		f, err := os.Create(file)

		if err != nil {
			return err
		}

		defer f.Close()
		w = f
	}

	if err := report.WriteCSV(w, table); err != nil {
		return err
	}

	if file != "-" {
		log.Printf("Saved consensus scores to %s\n", file)
	}

	return nil
}

func printSummaries(title string, sums []report.Summary) {

	fmt.Printf("\nScore by %s\n", title)
	fmt.Printf("%-32s %6s %6s %6s %6s %6s %6s %6s\n",
		title, "count", "mean", "min", "q1", "median", "q3", "max")

	for _, s := range sums {
		key := s.Key

		if key == "" {
			key = "(none)"
		}

		fmt.Printf("%-32s %6d %6.3f %6.3f %6.3f %6.3f %6.3f %6.3f\n",
			key, s.Count, s.Mean, s.Min, s.Q1, s.Median, s.Q3, s.Max)
	}
}

func printAgreement(m *agreement.Matrix) {

	fmt.Printf("\nPairwise agreement\n")
	fmt.Printf("%-20s %-20s %6s %8s %8s %8s\n",
		"project a", "project b", "images", "matched", "mean", "f1")

	for _, s := range m.Pairs() {
		fmt.Printf("%-20s %-20s %6d %8d %8.3f %8.3f\n",
			s.ProjectA, s.ProjectB, s.Images, s.Matched, s.MeanSimilarity(), s.F1())
	}
}
