package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/trendradar/internal/logging"
	"github.com/elonfeng/trendradar/internal/scheduler"
	"github.com/elonfeng/trendradar/internal/store"
	"github.com/elonfeng/trendradar/pkg/proposal"
	"github.com/elonfeng/trendradar/pkg/report"
	"github.com/elonfeng/trendradar/pkg/server"
	"github.com/elonfeng/trendradar/pkg/signal"
	"github.com/elonfeng/trendradar/pkg/source"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCollect(ctx context.Context, only []string, jsonOutput bool) error {
	a, err := openApp(only)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.pipeline.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	if jsonOutput {
		return printJSON(run.Signals)
	}

	for _, o := range run.Failed() {
		fmt.Fprintf(os.Stderr, "  %s failed: %v\n", o.Adapter, o.Err)
	}
	if len(run.Signals) == 0 {
		fmt.Println("no signals collected")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tSTATUS\tORIGIN\tCATEGORY\tMENTIONS\tKEYWORD")
	for _, s := range run.Signals {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			s.Score, run.Histories[s.Keyword].Status, s.Origin, s.Category, s.MentionCount, s.Keyword)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\n%d signals, %d rising, %d alerts sent\n", len(run.Signals), len(run.Rising), run.Alerted)
	return nil
}

// currentSignals returns today's snapshot, running the pipeline when
// there is none or collect is set.
func (a *app) currentSignals(ctx context.Context, collect bool) ([]signal.Signal, error) {
	if !collect {
		snap, err := a.snapshots.Load(time.Now())
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		if snap != nil {
			return snap.Signals, nil
		}
		logging.Info().Msg("no snapshot for today, collecting")
	}
	run, err := a.pipeline.RunOnce(ctx)
	if err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}
	return run.Signals, nil
}

func (a *app) histories(ctx context.Context, signals []signal.Signal) (map[string]signal.History, error) {
	out := make(map[string]signal.History)
	for _, s := range signals {
		if _, ok := out[s.Keyword]; ok {
			continue
		}
		h, err := a.db.History(ctx, s.Keyword)
		if err != nil {
			return nil, err
		}
		if h != nil {
			out[s.Keyword] = a.classifier.Analyze(*h)
		}
	}
	return out, nil
}

func runReport(ctx context.Context, out string, collect bool) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	signals, err := a.currentSignals(ctx, collect)
	if err != nil {
		return err
	}
	histories, err := a.histories(ctx, signals)
	if err != nil {
		return err
	}
	books, err := a.catalog.LoadAll()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	now := time.Now()
	data := report.Data{
		Date:        now,
		GeneratedAt: now,
		Signals:     signals,
		Articles:    proposal.NewArticleProposer(nil).Propose(signals, proposal.ArticleOptions{}),
		Promotions:  proposal.NewBookPromoter(a.relations).ProposeAll(books, signals),
		Histories:   histories,
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create report %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}
	if err := report.Render(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if out != "" {
		fmt.Fprintf(os.Stderr, "report written to %s\n", out)
	}
	return nil
}

func runRelated(ctx context.Context, keyword string, limit int) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	signals, err := a.currentSignals(ctx, false)
	if err != nil {
		return err
	}

	target := signal.Signal{Keyword: keyword, Category: source.Categorize(keyword)}
	for _, s := range signals {
		if strings.EqualFold(s.Keyword, keyword) {
			target = s
			break
		}
	}

	related := a.relations.FindRelated(target, signals, limit)
	if len(related) == 0 {
		fmt.Printf("no signals related to %q\n", keyword)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RELEVANCE\tSCORE\tCATEGORY\tKEYWORD")
	for _, r := range related {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", r.RelevanceScore, r.Signal.Score, r.Signal.Category, r.Signal.Keyword)
	}
	return w.Flush()
}

func runBookPromotions(ctx context.Context) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	books, err := a.catalog.LoadAll()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if len(books) == 0 {
		fmt.Println("catalog is empty (add entries with: trendradar books add)")
		return nil
	}

	signals, err := a.currentSignals(ctx, false)
	if err != nil {
		return err
	}

	promos := proposal.NewBookPromoter(a.relations).ProposeAll(books, signals)
	if len(promos) == 0 {
		fmt.Println("no catalog entries match current signals")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tTITLE\tUNTIL\tSIGNALS")
	for _, p := range promos {
		kws := make([]string, len(p.Related))
		for i, r := range p.Related {
			kws[i] = r.Signal.Keyword
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Level, p.Item.Title, p.Period.End.Format("2006-01-02"), strings.Join(kws, ", "))
	}
	return w.Flush()
}

func runBookSuggestions(ctx context.Context) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	books, err := a.catalog.LoadAll()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	signals, err := a.currentSignals(ctx, false)
	if err != nil {
		return err
	}

	suggestions := proposal.NewBookSuggester().Suggest(signals, books)
	if len(suggestions) == 0 {
		fmt.Println("catalog already covers current signals")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tMENTIONS\tGENRE\tKEYWORD\tNEW KEYWORDS")
	for _, s := range suggestions {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", s.Score, s.MentionCount, s.Genre, s.Keyword, strings.Join(s.NewKeywords, ", "))
	}
	return w.Flush()
}

// openCatalog avoids opening SQLite for pure catalog edits.
func openCatalog() (*store.CatalogRepo, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return store.NewCatalogRepo(store.NewBlobStore(cfg.Storage.DataDir)), nil
}

func runBooksList() error {
	repo, err := openCatalog()
	if err != nil {
		return err
	}
	items, err := repo.LoadAll()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tGENRE\tTITLE\tKEYWORDS")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.ID, it.Genre, it.Title, strings.Join(it.Keywords, ", "))
	}
	return w.Flush()
}

type bookFlags struct {
	id       string
	title    string
	keywords []string
	genre    string
	url      string
}

func runBooksAdd(f bookFlags) error {
	repo, err := openCatalog()
	if err != nil {
		return err
	}
	if f.id == "" {
		f.id = uuid.NewString()
	}
	item := signal.CatalogItem{ID: f.id, Title: f.title, Keywords: f.keywords, Genre: f.genre, ExternalURL: f.url}
	if err := repo.Add(item); err != nil {
		return fmt.Errorf("add catalog entry: %w", err)
	}
	fmt.Println(item.ID)
	return nil
}

func runBooksDelete(id string) error {
	repo, err := openCatalog()
	if err != nil {
		return err
	}
	deleted, err := repo.DeleteByID(id)
	if err != nil {
		return fmt.Errorf("delete catalog entry: %w", err)
	}
	if !deleted {
		return fmt.Errorf("catalog entry %s not found", id)
	}
	return nil
}

func runHistory(ctx context.Context, keyword string, jsonOutput bool) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	h, err := a.db.History(ctx, keyword)
	if err != nil {
		return err
	}
	if h == nil {
		fmt.Printf("no history for %q\n", keyword)
		return nil
	}
	analyzed := a.classifier.Analyze(*h)

	if jsonOutput {
		return printJSON(analyzed)
	}

	fmt.Printf("%s: %s (%d points)\n\n", analyzed.Keyword, analyzed.Status, len(analyzed.DataPoints))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSCORE\tMENTIONS")
	for _, p := range analyzed.DataPoints {
		fmt.Fprintf(w, "%s\t%d\t%d\n", p.Timestamp.Format(time.RFC3339), p.Score, p.MentionCount)
	}
	return w.Flush()
}

func (a *app) server(port int) *server.Server {
	if port == 0 {
		port = a.cfg.Server.Port
	}
	return server.New(a.db, a.pipeline, server.Options{
		Port:       port,
		Relations:  a.relations,
		Classifier: a.classifier,
	})
}

func runServe(ctx context.Context, port int) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.server(port).ListenAndServe(ctx)
}

func runDaemon(ctx context.Context, port int) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.New(a.pipeline, a.cfg.Schedule.ParseInterval())
	srv := a.server(port)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})

	err = g.Wait()
	logging.Info().Msg("shut down")
	return err
}
