package strategyconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var (
	validate   = newValidator()
	cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === 구조 태그 ===
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ValidationError{fieldPath(fe.Namespace()), fmt.Sprintf("failed %q (%v)", fe.Tag(), fe.Value())}
		}
		return err
	}

	// === Presets ===
	for name, p := range cfg.Presets {
		if p.RSIMin != nil && p.RSIMax != nil && *p.RSIMin > *p.RSIMax {
			return ValidationError{"presets." + name, "rsi_min must be <= rsi_max"}
		}
	}

	// === Schedule ===
	if cfg.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
			return ValidationError{"schedule.timezone", err.Error()}
		}
	}
	specs := []struct {
		field string
		spec  string
	}{
		{"schedule.cache_update", cfg.Schedule.CacheUpdate},
		{"schedule.market_scan", cfg.Schedule.MarketScan},
		{"schedule.cache_cleanup", cfg.Schedule.CacheCleanup},
	}
	for _, s := range specs {
		if s.spec == "" {
			continue // 비활성
		}
		if _, err := cronParser.Parse(s.spec); err != nil {
			return ValidationError{s.field, err.Error()}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 유니버스 무제한 경고
	if cfg.Universe.MaxSymbols == 0 || cfg.Universe.MaxSymbols > 300 {
		warnings = append(warnings, Warning{
			Code:    "LARGE_UNIVERSE",
			Message: "max_symbols > 300 or unlimited: 스캔 1회 소요 시간 증가",
		})
	}

	if len(cfg.Presets) == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_PRESETS",
			Message: "presets 비어 있음: API preset 파라미터 사용 불가",
		})
	}

	// 외부 API 부하
	if cfg.Scan.RatePerSec == 0 || cfg.Scan.RatePerSec > 20 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_RATE",
			Message: "rate_per_sec > 20 or unlimited: 공급자 차단 우려",
		})
	}

	return warnings
}

// newValidator reports fields by their yaml names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// fieldPath strips the root struct name: "Config.scan.workers" -> "scan.workers"
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
