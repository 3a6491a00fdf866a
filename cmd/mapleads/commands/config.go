package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/mapleads/cmd/mapleads/chrome"
	"github.com/jmylchreest/mapleads/internal/output"
	"github.com/jmylchreest/mapleads/internal/store"
	"github.com/jmylchreest/mapleads/pkg/browser"
	"github.com/jmylchreest/mapleads/pkg/email"
	"github.com/jmylchreest/mapleads/pkg/pacing"
	"github.com/jmylchreest/mapleads/pkg/places"
)

// Defaults shared by flags and config keys.
const (
	defaultTotal       = 20
	defaultFormat      = "excel"
	defaultOutputDir   = "GMaps_Data"
	defaultConcurrency = 1
	defaultEmailFetch  = "browser"
	defaultLocale      = "en-GB"
)

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

func setDefaults(v *viper.Viper) {
	v.SetDefault("total", defaultTotal)
	v.SetDefault("headless", true)
	v.SetDefault("format", defaultFormat)
	v.SetDefault("output.base_dir", defaultOutputDir)
	v.SetDefault("concurrency", defaultConcurrency)
	v.SetDefault("email.fetch", defaultEmailFetch)
	v.SetDefault("email.follow_contact", false)
	v.SetDefault("stealth", false)
	v.SetDefault("locale", defaultLocale)
	v.SetDefault("store.path", store.DefaultPath())
	v.SetDefault("pacing.scale", 1.0)
	v.SetDefault("pacing.rate", 0.0)
}

// selectorOverrides holds selector strings from configuration. Each one
// is CSS, or XPath when it starts with "/" or "(".
type selectorOverrides struct {
	Consent     string
	SearchInput string
	Listing     string
	Name        []string
	Address     string
	Website     string
	Phone       string
}

// scrapeOptions is a validated scrape request as assembled from flags,
// environment and config file.
type scrapeOptions struct {
	Query         string `validate:"required"`
	Total         int    `validate:"min=10,max=200"`
	Headless      bool
	Format        string `validate:"required,format"`
	OutputDir     string `validate:"required"`
	Concurrency   int    `validate:"min=1,max=16"`
	EmailFetch    string `validate:"oneof=browser static off"`
	FollowContact bool
	Stealth       bool
	ChromePath    string
	Locale        string `validate:"required,bcp47_language_tag"`
	StorePath     string
	PacingScale   float64 `validate:"gt=0"`
	PacingRate    float64 `validate:"gte=0"`
	Selectors     selectorOverrides
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("format", func(fl validator.FieldLevel) bool {
		_, err := output.ParseFormat(fl.Field().String())
		return err == nil
	})
	return v
}

// loadScrapeOptions reads a scrape request from v. Positional args form
// the query when no query is configured.
func loadScrapeOptions(v *viper.Viper, args []string) (scrapeOptions, error) {
	o := scrapeOptions{
		Query:         strings.TrimSpace(v.GetString("query")),
		Total:         v.GetInt("total"),
		Headless:      v.GetBool("headless"),
		Format:        v.GetString("format"),
		OutputDir:     v.GetString("output.base_dir"),
		Concurrency:   v.GetInt("concurrency"),
		EmailFetch:    strings.ToLower(v.GetString("email.fetch")),
		FollowContact: v.GetBool("email.follow_contact"),
		Stealth:       v.GetBool("stealth"),
		ChromePath:    v.GetString("chrome_path"),
		Locale:        v.GetString("locale"),
		StorePath:     v.GetString("store.path"),
		PacingScale:   v.GetFloat64("pacing.scale"),
		PacingRate:    v.GetFloat64("pacing.rate"),
		Selectors: selectorOverrides{
			Consent:     v.GetString("selectors.consent"),
			SearchInput: v.GetString("selectors.search_input"),
			Listing:     v.GetString("selectors.listing"),
			Name:        v.GetStringSlice("selectors.name"),
			Address:     v.GetString("selectors.address"),
			Website:     v.GetString("selectors.website"),
			Phone:       v.GetString("selectors.phone"),
		},
	}
	if o.Query == "" {
		o.Query = strings.TrimSpace(strings.Join(args, " "))
	}

	if err := validate.Struct(o); err != nil {
		return o, validationError(err)
	}
	return o, nil
}

// validationError turns validator output into one readable error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, optionName(e.Field())+" "+formatValidationError(e))
	}
	return fmt.Errorf("invalid options: %s", strings.Join(msgs, "; "))
}

// optionName maps a struct field to its flag name.
func optionName(field string) string {
	switch field {
	case "OutputDir":
		return "output-dir"
	case "EmailFetch":
		return "email-fetch"
	case "PacingScale":
		return "pacing-scale"
	case "PacingRate":
		return "pacing-rate"
	default:
		return strings.ToLower(field)
	}
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be %s or more", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(e.Param(), " ", ", "))
	case "format":
		return fmt.Sprintf("must be one of: %s", formatNames())
	case "bcp47_language_tag":
		return "must be a language tag such as en-GB"
	default:
		return fmt.Sprintf("failed %s validation", e.Tag())
	}
}

func formatNames() string {
	names := make([]string, len(output.Formats))
	for i, f := range output.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// format returns the parsed output format. Options must be validated.
func (o scrapeOptions) format() output.Format {
	f, _ := output.ParseFormat(o.Format)
	return f
}

func (o scrapeOptions) selectors() places.Selectors {
	s := places.Selectors{
		Consent:     parseLocator(o.Selectors.Consent),
		SearchInput: parseLocator(o.Selectors.SearchInput),
		Listing:     parseLocator(o.Selectors.Listing),
		Address:     parseLocator(o.Selectors.Address),
		Website:     parseLocator(o.Selectors.Website),
		Phone:       parseLocator(o.Selectors.Phone),
	}
	for _, n := range o.Selectors.Name {
		if loc := parseLocator(n); !loc.IsZero() {
			s.Name = append(s.Name, loc)
		}
	}
	return s
}

func parseLocator(s string) browser.Locator {
	if strings.TrimSpace(s) == "" {
		return browser.Locator{}
	}
	return browser.ParseLocator(s)
}

func (o scrapeOptions) pacer() *pacing.RandomPacer {
	opts := []pacing.Option{pacing.WithScale(o.PacingScale)}
	if o.PacingRate > 0 {
		opts = append(opts, pacing.WithRateLimit(rate.Limit(o.PacingRate), 1))
	}
	return pacing.New(opts...)
}

func (o scrapeOptions) chromeConfig() chrome.Config {
	cfg := chrome.DefaultConfig()
	cfg.Headless = o.Headless
	cfg.Stealth = o.Stealth
	cfg.ChromePath = o.ChromePath
	cfg.Locale = o.Locale
	return cfg
}

// emailFinder builds the lookup strategy chosen by --email-fetch.
func (o scrapeOptions) emailFinder(session browser.Session, p pacing.Pacer) email.Finder {
	switch o.EmailFetch {
	case "off":
		return email.Off
	case "static":
		f := email.NewStaticFinder()
		f.FollowContact = o.FollowContact
		return f
	default:
		f := email.NewBrowserFinder(session, p)
		f.FollowContact = o.FollowContact
		return f
	}
}
