package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"targetradar/internal/cli"
	"targetradar/internal/common"
	"targetradar/internal/export"
	"targetradar/internal/fetch"
	"targetradar/internal/financials"
	"targetradar/internal/geo"
	"targetradar/internal/model"
	"targetradar/internal/pipeline"
	"targetradar/internal/ratelimit"
	"targetradar/internal/registry"
	"targetradar/internal/scoring"
)

type searchFlags struct {
	sicCodes []string

	minDirectorAge  int
	maxDirectors    int
	minYearsTrading int
	pageSize        int
	pages           int
	limitCompanies  int

	fetchFinancials bool
	financialsTopN  int
	minEmployees    int

	fetchOwners   bool
	ownerMinAge   int
	ownerMaxCount int

	accountsWithinMonths       int
	excludeOverdueAccounts     bool
	confirmationWithinMonths   int
	excludeOverdueConfirmation bool

	excludeInsolvency    bool
	excludeUndeliverable bool
	excludeDispute       bool

	fetchCharges bool
	chargesTopN  int
	maxCharges   int

	centre   string
	radiusKM float64

	wDirectorAge float64
	wOwnerAge    float64
	wYears       float64
	wEmployees   float64
	wTurnover    float64
	wNearness    float64

	output  string
	cacheDB string
}

// unset marks optional integer bounds the caller did not provide.
const unset = -1

func searchCmd() *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the registry for qualifying acquisition targets",
		Long: `Runs the candidate pipeline: paged SIC-code search, per-company
enrichment (directors, profile, filings, financials, owners, charges),
inline filtering, optional radius restriction, and weighted scoring.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, &f)
		},
	}

	defaults := model.DefaultQuery(nil)
	weights := scoring.DefaultWeights()

	cmd.Flags().StringSliceVar(&f.sicCodes, "sic", nil, "SIC codes to search (required)")
	_ = cmd.MarkFlagRequired("sic")

	cmd.Flags().IntVar(&f.minDirectorAge, "min-age", defaults.MinDirectorAge, "minimum age of every active director")
	cmd.Flags().IntVar(&f.maxDirectors, "max-directors", defaults.MaxDirectors, "maximum number of active directors")
	cmd.Flags().IntVar(&f.minYearsTrading, "min-years", defaults.MinYearsTrading, "minimum whole years since incorporation")
	cmd.Flags().IntVar(&f.pageSize, "page-size", defaults.PageSize, "search page size")
	cmd.Flags().IntVar(&f.pages, "pages", defaults.Pages, "maximum search pages to fetch")
	cmd.Flags().IntVar(&f.limitCompanies, "limit", defaults.LimitCompanies, "cap on companies examined per run")

	cmd.Flags().BoolVar(&f.fetchFinancials, "financials", false, "extract financials from the latest accounts document")
	cmd.Flags().IntVar(&f.financialsTopN, "financials-top", defaults.FinancialsTopN, "only extract financials for the first N candidates")
	cmd.Flags().IntVar(&f.minEmployees, "min-employees", 0, "reject candidates with a known employee figure below this")

	cmd.Flags().BoolVar(&f.fetchOwners, "owners", false, "fetch individual owners and apply owner gates")
	cmd.Flags().IntVar(&f.ownerMinAge, "owner-min-age", 0, "minimum age of every individual owner (0 disables)")
	cmd.Flags().IntVar(&f.ownerMaxCount, "owner-max", defaults.OwnerMaxCount, "maximum number of individual owners")

	cmd.Flags().IntVar(&f.accountsWithinMonths, "accounts-within", unset, "require accounts filed within this many months")
	cmd.Flags().BoolVar(&f.excludeOverdueAccounts, "exclude-overdue-accounts", false, "reject candidates with overdue accounts")
	cmd.Flags().IntVar(&f.confirmationWithinMonths, "confirmation-within", unset, "require a confirmation statement within this many months")
	cmd.Flags().BoolVar(&f.excludeOverdueConfirmation, "exclude-overdue-confirmation", false, "reject candidates with an overdue confirmation statement")

	cmd.Flags().BoolVar(&f.excludeInsolvency, "exclude-insolvency", false, "reject candidates with insolvency history")
	cmd.Flags().BoolVar(&f.excludeUndeliverable, "exclude-undeliverable", false, "reject candidates with an undeliverable registered address")
	cmd.Flags().BoolVar(&f.excludeDispute, "exclude-dispute", false, "reject candidates whose registered office is in dispute")

	cmd.Flags().BoolVar(&f.fetchCharges, "charges", false, "look up outstanding-charges counts")
	cmd.Flags().IntVar(&f.maxCharges, "max-charges", unset, "reject candidates with more outstanding charges than this")
	cmd.Flags().IntVar(&f.chargesTopN, "charges-top", defaults.ChargesTopN, "only count charges for the first N candidates")

	cmd.Flags().StringVar(&f.centre, "centre", "", "centre postcode for the radius filter")
	cmd.Flags().Float64Var(&f.radiusKM, "radius-km", 0, "radius in km around the centre postcode")

	cmd.Flags().Float64Var(&f.wDirectorAge, "w-dir-age", weights.DirectorAge, "score weight: average director age")
	cmd.Flags().Float64Var(&f.wOwnerAge, "w-owner-age", weights.OwnerAge, "score weight: average owner age")
	cmd.Flags().Float64Var(&f.wYears, "w-years", weights.YearsTrading, "score weight: years trading")
	cmd.Flags().Float64Var(&f.wEmployees, "w-employees", weights.Employees, "score weight: employee count")
	cmd.Flags().Float64Var(&f.wTurnover, "w-turnover", weights.Turnover, "score weight: turnover")
	cmd.Flags().Float64Var(&f.wNearness, "w-nearness", weights.Nearness, "score weight: nearness to centre")

	cmd.Flags().StringVar(&f.output, "output", "", "write the scored result set to a CSV file")
	cmd.Flags().StringVar(&f.cacheDB, "cache-db", "", "sqlite file for the persistent document/postcode cache")

	_ = viper.BindPFlag("weights.director_age", cmd.Flags().Lookup("w-dir-age"))
	_ = viper.BindPFlag("weights.owner_age", cmd.Flags().Lookup("w-owner-age"))
	_ = viper.BindPFlag("weights.years_trading", cmd.Flags().Lookup("w-years"))
	_ = viper.BindPFlag("weights.employees", cmd.Flags().Lookup("w-employees"))
	_ = viper.BindPFlag("weights.turnover", cmd.Flags().Lookup("w-turnover"))
	_ = viper.BindPFlag("weights.nearness", cmd.Flags().Lookup("w-nearness"))
	_ = viper.BindPFlag("cache.db", cmd.Flags().Lookup("cache-db"))

	return cmd
}

func runSearch(cmd *cobra.Command, f *searchFlags) error {
	ctx := cmd.Context()

	apiKey := viper.GetString("registry.api_key")
	if apiKey == "" {
		return common.NewUserError(
			"registry API key not configured; set registry.api_key in the config file or RADAR_REGISTRY_API_KEY",
			common.ErrMissingAPIKey)
	}

	q := buildQuery(f)
	if err := q.Validate(); err != nil {
		return err
	}

	limiter := ratelimit.New(ratelimit.DefaultLimit, ratelimit.DefaultWindow)
	memory := fetch.NewMemoryCache()
	caches := map[fetch.Class]fetch.Cache{}

	if path := viper.GetString("cache.db"); path != "" {
		persistent, err := fetch.NewSQLiteCache(path)
		if err != nil {
			slog.Warn("Persistent cache unavailable, using memory only", "path", path, "error", err)
			fmt.Fprintln(os.Stderr, cli.FormatWarning("persistent cache unavailable, using memory only"))
		} else {
			defer func() { _ = persistent.Close() }()
			caches[fetch.ClassDocument] = persistent
			caches[fetch.ClassGeo] = persistent
		}
	}

	userAgent := "targetradar/" + version

	registryFetcher := fetch.New(fetch.Config{
		APIKey:    apiKey,
		UserAgent: userAgent,
		Limiter:   limiter,
		Caches:    caches,
		Default:   memory,
	})

	// Geocoding calls share the cache but not the registry's request quota.
	geoFetcher := fetch.New(fetch.Config{
		UserAgent: userAgent,
		Caches:    caches,
		Default:   memory,
	})

	reg, err := registry.NewClient(registry.Config{Fetcher: registryFetcher})
	if err != nil {
		return err
	}
	geocoder, err := geo.NewClient(geoFetcher, "")
	if err != nil {
		return err
	}

	finder := pipeline.NewFinder(reg, financials.NewExtractor(reg))

	fmt.Println(cli.FormatTitle("Scanning the registry for targets"))

	bar := progressbar.NewOptions(q.LimitCompanies,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Examining candidates..."),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
	finder.Progress = func(processed, emitted int) {
		_ = bar.Set(processed)
		bar.Describe(fmt.Sprintf("Examining candidates (%d qualified)...", emitted))
	}

	rows, err := finder.FindTargets(ctx, q)
	if err != nil {
		return err
	}
	_ = bar.Finish()

	scoringRadius := 0.0
	if f.centre != "" && f.radiusKM > 0 {
		scoringRadius = f.radiusKM
		rows, err = geo.FilterByRadius(ctx, geocoder, rows, f.centre, f.radiusKM)
	} else {
		rows, err = geo.GeocodeRows(ctx, geocoder, rows)
	}
	if err != nil {
		return err
	}

	rows = scoring.Apply(rows, weightsFromConfig(), scoringRadius)
	rows = cli.SortByScore(rows)

	fmt.Println(cli.RenderTable(rows))
	fmt.Println(cli.RenderSummary(rows))

	if f.output != "" {
		if err := writeCSVFile(f.output, rows); err != nil {
			return err
		}
		fmt.Println(cli.FormatSuccess("Wrote " + f.output))
	}

	return nil
}

func buildQuery(f *searchFlags) model.CandidateQuery {
	q := model.DefaultQuery(f.sicCodes)
	q.MinDirectorAge = f.minDirectorAge
	q.MaxDirectors = f.maxDirectors
	q.MinYearsTrading = f.minYearsTrading
	q.PageSize = f.pageSize
	q.Pages = f.pages
	q.LimitCompanies = f.limitCompanies

	q.FetchFinancials = f.fetchFinancials
	q.FinancialsTopN = f.financialsTopN
	q.MinEmployees = f.minEmployees

	q.FetchOwners = f.fetchOwners
	q.OwnerMinAge = f.ownerMinAge
	q.OwnerMaxCount = f.ownerMaxCount

	if f.accountsWithinMonths != unset {
		v := f.accountsWithinMonths
		q.RequireAccountsWithinMonths = &v
	}
	q.ExcludeOverdueAccounts = f.excludeOverdueAccounts
	if f.confirmationWithinMonths != unset {
		v := f.confirmationWithinMonths
		q.RequireConfirmationWithinMonths = &v
	}
	q.ExcludeOverdueConfirmation = f.excludeOverdueConfirmation

	q.ExcludeInsolvencyHistory = f.excludeInsolvency
	q.ExcludeUndeliverableAddress = f.excludeUndeliverable
	q.ExcludeOfficeInDispute = f.excludeDispute

	q.FetchCharges = f.fetchCharges
	if f.maxCharges != unset {
		v := f.maxCharges
		q.MaxOutstandingCharges = &v
		q.FetchCharges = true
	}
	q.ChargesTopN = f.chargesTopN

	return q
}

func weightsFromConfig() scoring.Weights {
	return scoring.Weights{
		DirectorAge:  viper.GetFloat64("weights.director_age"),
		OwnerAge:     viper.GetFloat64("weights.owner_age"),
		YearsTrading: viper.GetFloat64("weights.years_trading"),
		Employees:    viper.GetFloat64("weights.employees"),
		Turnover:     viper.GetFloat64("weights.turnover"),
		Nearness:     viper.GetFloat64("weights.nearness"),
	}
}

func writeCSVFile(path string, rows []model.CandidateRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	if err := export.WriteCSV(file, rows); err != nil {
		return err
	}
	return nil
}
