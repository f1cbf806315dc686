package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/ewhitmore/haulfit/internal/store"
)

type cli struct {
	DB          string  `help:"Path to SQLite database." default:"data/haulfit.db" env:"HAULFIT_DB"`
	OutDir      string  `help:"Output directory for report artifacts." default:"out" env:"HAULFIT_OUT"`
	MetricsAddr string  `help:"Optional listen address for Prometheus metrics (e.g. :9090)." env:"HAULFIT_METRICS_ADDR"`
	Rho         float64 `help:"AR1 working correlation for the GAM fit." default:"0.3" env:"HAULFIT_RHO"`

	Ingest  ingestCmd  `cmd:"" help:"Fetch or load the telemetry dataset, validate it, and persist it."`
	Grid    gridCmd    `cmd:"" help:"Build and persist the synthetic prediction grid."`
	Predict predictCmd `cmd:"" help:"Run both forecasting paths over the grid."`
	Report  reportCmd  `cmd:"" help:"Fit GAM variants, compare models, and render the report."`
	Run     runCmd     `cmd:"" help:"Full pipeline: ingest, grid, predict, report."`
}

// appContext carries shared dependencies into subcommands.
type appContext struct {
	cli   *cli
	store *store.Store
}

func main() {
	var flags cli
	kctx := kong.Parse(&flags,
		kong.Name("haulfit"),
		kong.Description("Compares GLMM and GAM fits of haul-out probability from seal telemetry."),
		kong.UsageOnError(),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := sql.Open("sqlite", flags.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	if err := os.MkdirAll(flags.OutDir, 0o755); err != nil {
		log.Fatalf("create out dir: %v", err)
	}

	if flags.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(flags.MetricsAddr, mux); err != nil {
				log.Printf("metrics listener: %v", err)
			}
		}()
	}

	app := &appContext{cli: &flags, store: st}
	if err := kctx.Run(app); err != nil {
		log.Fatalf("%s: %v", kctx.Command(), err)
	}
}
