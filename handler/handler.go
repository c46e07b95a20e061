package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"auction-crawler/config"
	"auction-crawler/metrics"
	"auction-crawler/models"
	"auction-crawler/pipeline"
	"auction-crawler/utils"
)

// Request is the invocation payload. Every field is optional.
type Request struct {
	Query             *string `json:"query,omitempty"`
	Location          *string `json:"location,omitempty"`
	UseLLM            *bool   `json:"use_llm,omitempty"`
	FetchDescriptions *bool   `json:"fetch_descriptions,omitempty"`
	LLMFilter         *bool   `json:"llm_filter,omitempty"`
}

// Response mirrors an API gateway proxy response: Body is a JSON document.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

type resultBody struct {
	Auctions     []*models.Auction `json:"auctions"`
	Count        int               `json:"count"`
	Query        string            `json:"query"`
	Location     string            `json:"location"`
	LLMGenerated bool              `json:"llm_generated,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// SourceFactory opens the sources for one invocation. release is always
// called once the run finishes.
type SourceFactory func(ctx context.Context, opts pipeline.Options) (sources []pipeline.Source, release func(), err error)

// Runner drives the pipeline over a set of sources.
type Runner interface {
	Run(ctx context.Context, sources []pipeline.Source, query, location string, opts pipeline.Options) []*models.Auction
}

// Generator produces synthetic listings without touching the site.
type Generator interface {
	Generate(ctx context.Context, query, location string) ([]*models.Auction, error)
}

type Handler struct {
	cfg       *config.Config
	sources   SourceFactory
	runner    Runner
	generator Generator
	logger    *utils.Logger
}

// New creates a Handler. generator may be nil, in which case the generation
// mode always answers with an empty list.
func New(cfg *config.Config, sources SourceFactory, runner Runner, generator Generator, logger *utils.Logger) *Handler {
	return &Handler{cfg: cfg, sources: sources, runner: runner, generator: generator, logger: logger}
}

// Handle runs the scrape pipeline for one request. Failures, panics
// included, become a 500 response with an error body.
func (h *Handler) Handle(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("[handler] Panic while handling request: %v", r)
			resp = h.fail(fmt.Errorf("internal error: %v", r))
		}
		h.observe("scrape", start, resp.StatusCode)
	}()

	query, location := h.target(req)
	opts := h.options(req)
	h.logger.Info("[handler] Searching auctions for '%s' in '%s' (llm=%t, descriptions=%t)", query, location, opts.UseLLM, opts.FetchDescriptions)

	sources, release, err := h.sources(ctx, opts)
	if err != nil {
		h.logger.Error("[handler] Could not open sources: %v", err)
		return h.fail(err)
	}
	defer release()

	auctions := h.runner.Run(ctx, sources, query, location, opts)
	h.logger.Info("[handler] Returning %d auctions", len(auctions))
	return h.respond(http.StatusOK, resultBody{
		Auctions: nonNil(auctions),
		Count:    len(auctions),
		Query:    query,
		Location: location,
	})
}

// HandleGenerate asks the LLM for listings. A generation failure is logged
// and answered with an empty list.
func (h *Handler) HandleGenerate(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("[handler] Panic while generating auctions: %v", r)
			resp = h.fail(fmt.Errorf("internal error: %v", r))
		}
		h.observe("generate", start, resp.StatusCode)
	}()

	query, location := h.target(req)
	h.logger.Info("[handler] Generating auctions for '%s' in '%s'", query, location)

	var auctions []*models.Auction
	if h.generator == nil {
		h.logger.Warn("[handler] No generator configured")
	} else {
		generated, err := h.generator.Generate(ctx, query, location)
		if err != nil {
			h.logger.Error("[handler] Error generating auctions: %v", err)
		}
		auctions = generated
	}

	return h.respond(http.StatusOK, resultBody{
		Auctions:     nonNil(auctions),
		Count:        len(auctions),
		Query:        query,
		Location:     location,
		LLMGenerated: true,
	})
}

func (h *Handler) target(req Request) (query, location string) {
	query, location = h.cfg.DefaultQuery, h.cfg.DefaultLocation
	if req.Query != nil && strings.TrimSpace(*req.Query) != "" {
		query = strings.TrimSpace(*req.Query)
	}
	if req.Location != nil && strings.TrimSpace(*req.Location) != "" {
		location = strings.TrimSpace(*req.Location)
	}
	return query, location
}

func (h *Handler) options(req Request) pipeline.Options {
	opts := pipeline.OptionsFromConfig(h.cfg)
	if req.UseLLM != nil {
		opts.UseLLM = *req.UseLLM
	}
	if req.FetchDescriptions != nil {
		opts.FetchDescriptions = *req.FetchDescriptions
	}
	if req.LLMFilter != nil {
		opts.LLMFilter = *req.LLMFilter
	}
	return opts
}

func (h *Handler) respond(status int, body any) Response {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		h.logger.Error("[handler] Error encoding response: %v", err)
		return Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers(),
			Body:       `{"error":"could not encode response"}`,
		}
	}
	return Response{
		StatusCode: status,
		Headers:    headers(),
		Body:       strings.TrimSuffix(buf.String(), "\n"),
	}
}

func (h *Handler) fail(err error) Response {
	return h.respond(http.StatusInternalServerError, errorBody{Error: err.Error()})
}

func (h *Handler) observe(mode string, start time.Time, status int) {
	metrics.Invocations.WithLabelValues(mode, strconv.Itoa(status)).Inc()
	metrics.InvocationDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func headers() map[string]string {
	return map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
	}
}

func nonNil(auctions []*models.Auction) []*models.Auction {
	if auctions == nil {
		return []*models.Auction{}
	}
	return auctions
}
