package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"

	"golang.org/x/time/rate"

	"subjectivity_datagen/dataset"
	"subjectivity_datagen/generator"
	"subjectivity_datagen/publisher"
	"subjectivity_datagen/server"
)

var verbose bool

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	configPath := flag.String("config", "config/config.json", "path to config.json")
	langs := flag.String("lang", "", "comma separated language codes (overrides generation.languages)")
	minSamples := flag.Int("min", 0, "minimum samples per language (overrides generation.min_samples)")
	out := flag.String("out", "", "output path, {lang} is replaced by the language code (overrides output.path)")
	mode := flag.String("mode", "", "enhanced, random or promptset (overrides generation.mode)")
	mock := flag.Bool("mock", false, "use the offline mock model instead of a real provider")
	seed := flag.Uint64("seed", 0, "random seed for topic sampling, shuffling and ids; 0 means random")
	serve := flag.Bool("serve", false, "start the preview web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	html := flag.Bool("html", false, "also render the report as HTML")
	flag.BoolVar(&verbose, "v", false, "enable info logs")
	flag.Parse()
	log.SetOutput(levelFilter{w: os.Stderr, verbose: verbose})

	publisher.LoadEnv(infoLogger())
	cfg, err := publisher.LoadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	applyFlags(&cfg, *langs, *minSamples, *out, *mode, *seed, *html)
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	llm, err := buildLLM(cfg, *mock)
	if err != nil {
		fatal(err)
	}
	caller, err := generator.NewCaller(llm, generator.CallerOptions{
		MaxRetries: cfg.Generation.MaxRetries,
		BaseDelay:  cfg.Generation.BaseDelay,
		Limiter:    buildLimiter(cfg.LLM),
		Logger:     log.Default(),
	})
	if err != nil {
		fatal(err)
	}
	rng, ids := randomSources(cfg.Generation.Seed)

	// Web server mode
	if *serve {
		gen, err := newGenerator(caller, cfg, rng, generator.DelimitedStrategies())
		if err != nil {
			fatal(err)
		}
		srv, err := server.New(gen, server.Options{MinLength: cfg.Generation.MinLength, Logger: log.Default()})
		if err != nil {
			fatal(err)
		}
		listen := cfg.ServerAddr
		if *addr != "" {
			listen = *addr
		}
		if listen == "" {
			listen = ":8080"
		}
		log.Printf("Starting web server on %s", listen)
		if err := http.ListenAndServe(listen, srv.Routes()); err != nil {
			fatal(err)
		}
		return
	}

	pub, err := publisher.New(cfg.Output, verbose, log.Default())
	if err != nil {
		fatal(err)
	}
	var history *dataset.History
	if cfg.Output.HistoryPath != "" {
		history, err = dataset.OpenHistory(cfg.Output.HistoryPath)
		if err != nil {
			fatal(err)
		}
		defer history.Close()
	}

	ctx := context.Background()
	r := runner{cfg: cfg, caller: caller, rng: rng, ids: ids, pub: pub, history: history}
	for _, lang := range cfg.Generation.Languages {
		if err := r.run(ctx, lang); err != nil {
			if history != nil {
				history.Close()
			}
			fatal(err)
		}
	}
}

type runner struct {
	cfg     publisher.Config
	caller  *generator.Caller
	rng     *rand.Rand
	ids     io.Reader
	pub     *publisher.Publisher
	history *dataset.History
}

// run generates, finalizes and writes the dataset for one language.
func (r runner) run(ctx context.Context, lang string) error {
	g := r.cfg.Generation
	log.Printf("[cli] generating %s data: mode=%s min=%d", lang, g.Mode, g.MinSamples)

	strategies := generator.DelimitedStrategies()
	if g.Mode == "promptset" {
		strategies = generator.NumberedStrategies()
	}
	gen, err := newGenerator(r.caller, r.cfg, r.rng, strategies)
	if err != nil {
		return err
	}

	var corpus generator.Corpus
	target := g.MinSamples
	switch g.Mode {
	case "promptset":
		if !strings.EqualFold(lang, "en") {
			return fmt.Errorf("promptset mode supports en only, got %q", lang)
		}
		specs := generator.EnglishPromptSet()
		bar := newProgressBar(progressName(lang, g.Mode), len(specs), false)
		acc, err := generator.NewAccumulator(gen, generator.AccumulatorOptions{Observer: bar, Logger: log.Default()})
		if err != nil {
			return err
		}
		corpus = acc.RunPromptSet(ctx, lang, specs)
		bar.Finish()
		target = 0
	case "random":
		bar := newProgressBar(progressName(lang, g.Mode), target, true)
		acc, err := generator.NewAccumulator(gen, generator.AccumulatorOptions{Observer: bar, Logger: log.Default()})
		if err != nil {
			return err
		}
		corpus = acc.AccumulateRandom(ctx, lang, target, g.MaxBatches)
		bar.Finish()
	default:
		bar := newProgressBar(progressName(lang, g.Mode), target, true)
		acc, err := generator.NewAccumulator(gen, generator.AccumulatorOptions{
			GroupSize: g.GroupSize,
			Observer:  bar,
			Logger:    log.Default(),
		})
		if err != nil {
			return err
		}
		corpus = acc.Accumulate(ctx, lang, target)
		bar.Finish()
	}

	res, err := dataset.Finalize(corpus, dataset.FinalizeOptions{
		Language:        lang,
		Rand:            r.rng,
		IDSource:        r.ids,
		DedupeWithinRun: g.Dedupe,
		History:         r.history,
		DropSeen:        r.cfg.Output.DropSeen,
		Target:          target,
		Logger:          log.Default(),
	})
	if err != nil {
		return err
	}

	published, err := r.pub.Publish(lang, res)
	if err != nil {
		return err
	}
	if r.history != nil {
		if err := r.history.Remember(lang, res.Rows); err != nil {
			log.Printf("[WARN] failed to update history: %v", err)
		} else if n, err := r.history.Len(); err == nil {
			log.Printf("[INFO] history now holds %d sentences", n)
		}
	}
	log.Printf("[cli] %s done: %d rows written to %s", lang, len(res.Rows), published.Path)
	return nil
}

func newGenerator(caller *generator.Caller, cfg publisher.Config, rng *rand.Rand, strategies []generator.Strategy) (*generator.BatchGenerator, error) {
	parser := generator.NewParser(generator.ParseOptions{MinLength: cfg.Generation.MinLength}, strategies...)
	return generator.NewBatchGenerator(caller, parser, generator.BatchOptions{
		Topics:           cfg.Generation.Topics,
		SentencesPerCall: cfg.Generation.SentencesPerCall,
		Rand:             rng,
		Logger:           log.Default(),
	})
}

func applyFlags(cfg *publisher.Config, langs string, minSamples int, out, mode string, seed uint64, html bool) {
	if langs != "" {
		var list []string
		for _, l := range strings.Split(langs, ",") {
			if l = strings.TrimSpace(strings.ToLower(l)); l != "" {
				list = append(list, l)
			}
		}
		cfg.Generation.Languages = list
	}
	if minSamples > 0 {
		cfg.Generation.MinSamples = minSamples
	}
	if out != "" {
		cfg.Output.Path = out
	}
	if mode != "" {
		cfg.Generation.Mode = mode
	}
	if seed != 0 {
		cfg.Generation.Seed = seed
	}
	if html {
		cfg.Output.Report = true
		cfg.Output.HTML = true
	}
	if len(cfg.Generation.Languages) > 1 && !strings.Contains(cfg.Output.Path, "{lang}") {
		log.Printf("[WARN] output path %s has no {lang} placeholder; later languages overwrite earlier ones", cfg.Output.Path)
	}
}

// randomSources returns the shuffle source and the id source. A zero seed uses
// fresh randomness and crypto/rand ids.
func randomSources(seed uint64) (*rand.Rand, io.Reader) {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), nil
	}
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return rand.New(rand.NewPCG(seed, seed>>1|1)), rand.NewChaCha8(key)
}

func buildLimiter(llm *publisher.LLMConfig) *rate.Limiter {
	if llm == nil || llm.RequestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(llm.RequestsPerMinute/60), 1)
}

func buildLLM(cfg publisher.Config, mock bool) (generator.LLMClient, error) {
	if mock {
		return generator.MockLLM{}, nil
	}
	if cfg.LLM == nil || cfg.LLM.Provider == "" {
		return nil, errors.New("llm config missing; please set llm.provider/model/api_key_env in config")
	}
	settings := &generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.ResolveAPIKey(),
		BaseURL:  cfg.LLM.BaseURL,
	}
	if settings.APIKey == "" {
		return nil, fmt.Errorf("no api key for provider %s; set llm.api_key or the %s environment variable", cfg.LLM.Provider, apiKeyEnv(cfg))
	}
	switch cfg.LLM.Provider {
	case "openai":
		return generator.NewOpenAILLMFromConfig(settings)
	case "gemini":
		// Gemini 提供 OpenAI 兼容接口，未配置 base_url 时使用官方地址。
		if settings.BaseURL == "" {
			settings.BaseURL = generator.GeminiBaseURL
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url（例如官方/网关地址）。
		if settings.BaseURL == "" {
			return nil, errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

func apiKeyEnv(cfg publisher.Config) string {
	if cfg.LLM != nil && cfg.LLM.APIKeyEnv != "" {
		return cfg.LLM.APIKeyEnv
	}
	return publisher.DefaultAPIKeyEnv
}

// levelFilter drops [INFO] lines unless verbose is set.
type levelFilter struct {
	w       io.Writer
	verbose bool
}

func (f levelFilter) Write(p []byte) (int, error) {
	if !f.verbose && bytes.Contains(p, []byte("[INFO] ")) {
		return len(p), nil
	}
	return f.w.Write(p)
}

func infoLogger() *log.Logger {
	if !verbose {
		return nil
	}
	return log.Default()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
