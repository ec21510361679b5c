package alarms

import (
	"context"
	"strconv"
	"strings"

	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/logging"
	"gorm.io/gorm"
)

const DefaultLimit int = 100

type ConditionFunc func(*Condition) *Condition

type Condition struct {
	Environment string
	Resource    string
	Event       string
	Status      []string
	Severity    []string

	offset *int
	limit  *int
}

func (c Condition) Offset() int {
	if c.offset == nil || *c.offset < 0 {
		return 0
	}
	return *c.offset
}

func (c Condition) Limit() int {
	if c.limit == nil || *c.limit <= 0 {
		return DefaultLimit
	}
	return *c.limit
}

func (c Condition) Apply(query *gorm.DB) *gorm.DB {
	if c.Environment != "" {
		query = query.Where("environment = ?", c.Environment)
	}
	if c.Resource != "" {
		query = query.Where("resource = ?", c.Resource)
	}
	if c.Event != "" {
		query = query.Where("event = ?", c.Event)
	}
	if len(c.Status) > 0 {
		query = query.Where("status IN ?", c.Status)
	}
	if len(c.Severity) > 0 {
		query = query.Where("severity IN ?", c.Severity)
	}
	return query
}

func WithEnvironment(environment string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Environment = environment
		return c
	}
}

func WithResource(resource string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Resource = resource
		return c
	}
}

func WithEvent(event string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Event = event
		return c
	}
}

func WithStatus(status ...string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Status = unique(append(c.Status, status...))
		return c
	}
}

func WithSeverity(severity ...string) ConditionFunc {
	return func(c *Condition) *Condition {
		c.Severity = unique(append(c.Severity, severity...))
		return c
	}
}

func WithOffset(offset int) ConditionFunc {
	return func(c *Condition) *Condition {
		c.offset = &offset
		return c
	}
}

func WithLimit(limit int) ConditionFunc {
	return func(c *Condition) *Condition {
		c.limit = &limit
		return c
	}
}

func unique(s []string) []string {
	keys := make(map[string]bool)
	list := []string{}
	for _, entry := range s {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

func ParseConditions(ctx context.Context, params map[string][]string) []ConditionFunc {
	log := logging.GetLoggerFromContext(ctx)

	conditions := make([]ConditionFunc, 0)

	for k, v := range params {
		if len(v) == 0 {
			continue
		}

		switch strings.ToLower(k) {
		case "environment":
			conditions = append(conditions, WithEnvironment(v[0]))
		case "resource":
			conditions = append(conditions, WithResource(v[0]))
		case "event":
			conditions = append(conditions, WithEvent(v[0]))
		case "status":
			conditions = append(conditions, WithStatus(splitAll(v)...))
		case "severity":
			conditions = append(conditions, WithSeverity(splitAll(v)...))
		case "limit":
			limit, _ := strconv.Atoi(v[0])
			conditions = append(conditions, WithLimit(limit))
		case "offset":
			offset, _ := strconv.Atoi(v[0])
			conditions = append(conditions, WithOffset(offset))
		default:
			log.Debug().Msgf("unknown query parameter %s=%s", k, v[0])
		}
	}

	return conditions
}

func splitAll(values []string) []string {
	result := []string{}
	for _, v := range values {
		result = append(result, strings.Split(v, ",")...)
	}
	return result
}
