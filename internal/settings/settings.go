// Package settings resolves user settings from config files, environment
// variables and flags into the values the extraction pipelines consume.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/extractmd/pkg/extractmd"
	"github.com/jmylchreest/extractmd/pkg/markdown"
	"github.com/jmylchreest/extractmd/pkg/selector"
)

// Settings mirrors the configuration file layout.
type Settings struct {
	Page      PageSettings      `mapstructure:"page" yaml:"page" json:"page"`
	Article   ArticleSettings   `mapstructure:"article" yaml:"article" json:"article"`
	Universal UniversalSettings `mapstructure:"universal" yaml:"universal" json:"universal"`
	Download  DownloadSettings  `mapstructure:"download" yaml:"download" json:"download"`
	Fetch     FetchSettings     `mapstructure:"fetch" yaml:"fetch" json:"fetch"`
}

// PageSettings configures the page pipeline.
type PageSettings struct {
	IncludeImages        bool `mapstructure:"include_images" yaml:"include_images" json:"include_images"`
	IncludeTables        bool `mapstructure:"include_tables" yaml:"include_tables" json:"include_tables"`
	IncludeLinks         bool `mapstructure:"include_links" yaml:"include_links" json:"include_links"`
	OnlyMainSection      bool `mapstructure:"only_main_section" yaml:"only_main_section" json:"only_main_section"`
	SimplifyAggressively bool `mapstructure:"simplify_aggressively" yaml:"simplify_aggressively" json:"simplify_aggressively"`
	IncludeTitle         bool `mapstructure:"include_title" yaml:"include_title" json:"include_title"`
	IncludeURL           bool `mapstructure:"include_url" yaml:"include_url" json:"include_url"`
	MinContentLength     int  `mapstructure:"min_content_length" yaml:"min_content_length" json:"min_content_length" validate:"gte=-1"`
}

// ArticleSettings configures the article pipeline.
type ArticleSettings struct {
	IncludeImages bool `mapstructure:"include_images" yaml:"include_images" json:"include_images"`
	OnlyLongest   bool `mapstructure:"only_longest" yaml:"only_longest" json:"only_longest"`
	ShowInfo      bool `mapstructure:"show_info" yaml:"show_info" json:"show_info"`
	IncludeURL    bool `mapstructure:"include_url" yaml:"include_url" json:"include_url"`
}

// UniversalSettings configures the universal pipeline.
type UniversalSettings struct {
	IncludeImages  bool   `mapstructure:"include_images" yaml:"include_images" json:"include_images"`
	IncludeLinks   bool   `mapstructure:"include_links" yaml:"include_links" json:"include_links"`
	IncludeURL     bool   `mapstructure:"include_url" yaml:"include_url" json:"include_url"`
	ContentMode    string `mapstructure:"content_mode" yaml:"content_mode" json:"content_mode" validate:"oneof=auto full main selector"`
	CustomSelector string `mapstructure:"custom_selector" yaml:"custom_selector" json:"custom_selector" validate:"required_if=ContentMode selector"`
	StripNav       bool   `mapstructure:"strip_nav" yaml:"strip_nav" json:"strip_nav"`
}

// DownloadSettings decides whether output goes to a file.
type DownloadSettings struct {
	InsteadOfCopy bool `mapstructure:"instead_of_copy" yaml:"instead_of_copy" json:"instead_of_copy"`
	// IfLarger is a human-readable size such as "64 KiB"; empty or "0"
	// disables the threshold.
	IfLarger string `mapstructure:"if_larger" yaml:"if_larger" json:"if_larger" validate:"omitempty,bytesize"`
	Dir      string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// FetchSettings configures page fetching.
type FetchSettings struct {
	Mode        string        `mapstructure:"mode" yaml:"mode" json:"mode" validate:"oneof=auto static dynamic"`
	UserAgent   string        `mapstructure:"user_agent" yaml:"user_agent" json:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout" validate:"gt=0"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency" validate:"min=1,max=64"`
}

// Defaults holds the value of every key before files, environment or flags
// are applied.
var Defaults = map[string]any{
	"page.include_images":        true,
	"page.include_tables":        true,
	"page.include_links":         true,
	"page.only_main_section":     true,
	"page.simplify_aggressively": true,
	"page.include_title":         true,
	"page.include_url":           true,
	"page.min_content_length":    0,

	"article.include_images": true,
	"article.only_longest":   false,
	"article.show_info":      true,
	"article.include_url":    true,

	"universal.include_images":  true,
	"universal.include_links":   true,
	"universal.include_url":     true,
	"universal.content_mode":    string(selector.ModeAuto),
	"universal.custom_selector": "",
	"universal.strip_nav":       true,

	"download.instead_of_copy": false,
	"download.if_larger":       "0",
	"download.dir":             ".",

	"fetch.mode":        "static",
	"fetch.user_agent":  "",
	"fetch.timeout":     30 * time.Second,
	"fetch.concurrency": 3,
}

// Store reads settings from a viper instance seeded with Defaults.
type Store struct {
	v *viper.Viper
}

// NewStore wraps v, or a fresh viper instance when v is nil, and registers
// the defaults and the EXTRACTMD_ environment prefix on it.
func NewStore(v *viper.Viper) *Store {
	if v == nil {
		v = viper.New()
	}
	ApplyDefaults(v)
	v.SetEnvPrefix("EXTRACTMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Store{v: v}
}

// ApplyDefaults registers Defaults on v.
func ApplyDefaults(v *viper.Viper) {
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}
}

// Get returns the resolved value of each key, falling back to Defaults.
// Unknown keys map to nil.
func (s *Store) Get(keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		out[key] = s.v.Get(key)
	}
	return out
}

// Set overrides a key for the lifetime of the store.
func (s *Store) Set(key string, value any) {
	s.v.Set(key, value)
}

// Load resolves and validates all settings.
func (s *Store) Load() (*Settings, error) {
	var st Settings
	if err := s.v.Unmarshal(&st); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := Validate(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Default returns the settings produced by Defaults alone.
func Default() *Settings {
	st, err := NewStore(viper.New()).Load()
	if err != nil {
		// Defaults are static; failing here is a programming error.
		panic(fmt.Sprintf("invalid default settings: %v", err))
	}
	return st
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("bytesize", func(fl validator.FieldLevel) bool {
		_, err := humanize.ParseBytes(fl.Field().String())
		return err == nil
	})
	return v
}

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every invalid setting.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "invalid settings: " + strings.Join(msgs, "; ")
}

// Validate checks st against its validation tags.
func Validate(st *Settings) error {
	err := validate.Struct(st)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate settings: %w", err)
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		out = append(out, ValidationError{
			Field:   strings.TrimPrefix(e.Namespace(), "Settings."),
			Message: formatValidationError(e),
			Value:   e.Value(),
		})
	}
	return out
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required_if":
		return "is required when " + strings.Replace(e.Param(), " ", " is ", 1)
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "bytesize":
		return "must be a size such as 512KB or 2 MiB"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// DownloadThreshold returns Download.IfLarger in bytes. Invalid or empty
// values yield 0.
func (s *Settings) DownloadThreshold() int {
	if s.Download.IfLarger == "" {
		return 0
	}
	n, err := humanize.ParseBytes(s.Download.IfLarger)
	if err != nil {
		return 0
	}
	return int(n)
}

// Request builds an extraction request for url using the settings of
// pipeline.
func (s *Settings) Request(pipeline extractmd.Pipeline, url string) extractmd.Request {
	req := extractmd.Request{
		URL:              url,
		Pipeline:         pipeline,
		ForceDownload:    s.Download.InsteadOfCopy,
		DownloadIfLarger: s.DownloadThreshold(),
	}

	switch pipeline {
	case extractmd.PipelineArticle:
		req.Markdown = markdown.Options{IncludeImages: s.Article.IncludeImages}
		req.OnlyLongest = s.Article.OnlyLongest
		req.IncludeURL = s.Article.IncludeURL

	case extractmd.PipelineUniversal:
		req.Markdown = markdown.Options{
			IncludeImages: s.Universal.IncludeImages,
			IncludeTables: true,
			IncludeLinks:  s.Universal.IncludeLinks,
			StripNav:      s.Universal.StripNav,
		}
		req.Mode = selector.Mode(s.Universal.ContentMode)
		req.CustomSelector = s.Universal.CustomSelector
		req.IncludeURL = s.Universal.IncludeURL

	default:
		req.Pipeline = extractmd.PipelinePage
		req.Markdown = markdown.Options{
			IncludeImages: s.Page.IncludeImages,
			IncludeTables: s.Page.IncludeTables,
			IncludeLinks:  s.Page.IncludeLinks,
		}
		req.OnlyMainSection = s.Page.OnlyMainSection
		req.Aggressive = s.Page.SimplifyAggressively
		req.IncludeTitle = s.Page.IncludeTitle
		req.IncludeURL = s.Page.IncludeURL
		req.MinContentLength = s.Page.MinContentLength
	}

	return req
}
