// Command finflow-sample writes a workbook of random transactions for trying
// out the dashboard.
package main

import (
	"bufio"
	"flag"
	"math/rand/v2"
	"os"
	"time"

	"finflow/internal/cli"
	"finflow/internal/ingest"
	"finflow/internal/log"
)

func main() {
	rows := flag.Int("rows", 100, "number of transactions")
	output := flag.String("o", "sample_finflow.xlsx", "output file")
	seed := flag.Uint64("seed", 0, "random seed; 0 uses the current time")
	start := flag.String("start", "2023-01-01", "date of the first transaction (YYYY-MM-DD)")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentApp)

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		logger.Error("Invalid start date", log.FieldError, err)
		os.Exit(2)
	}
	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	f, err := os.Create(*output)
	if err != nil {
		logger.Error("Failed to create output file", log.FieldError, err, log.FieldFile, *output)
		os.Exit(1)
	}
	w := bufio.NewWriter(f)

	err = ingest.GenerateSample(w, ingest.SampleOptions{
		Rows:  *rows,
		Start: startDate,
		Rand:  rand.New(rand.NewPCG(*seed, 0)),
	})
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.Error("Failed to write sample", log.FieldError, err, log.FieldFile, *output)
		os.Exit(1)
	}
	logger.Info("Sample written", log.FieldFile, *output, log.FieldRows, *rows, "seed", *seed)
}
