package transform

import (
	"strconv"
	"strings"
	"time"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

var (
	datetimeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05", "2006-01-02T15:04:05"}
	dateLayouts     = []string{"2006-01-02"}
	allLayouts      = append(append([]string{}, datetimeLayouts...), dateLayouts...)
)

// InferTypes fills in unknown column types from the first non-null value of
// each column.
func InferTypes(res *domain.Result) *domain.Result {
	for i := range res.Columns {
		if t := res.Columns[i].Type; t != "" && t != domain.TypeUnknown {
			continue
		}
		res.Columns[i].Type = domain.TypeString
		for _, row := range res.Rows {
			if i >= len(row) || row[i] == nil {
				continue
			}
			res.Columns[i].Type = inferValue(row[i])
			break
		}
	}
	return res
}

func inferValue(v any) domain.ColumnType {
	switch x := v.(type) {
	case bool:
		return domain.TypeBoolean
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return domain.TypeDate
		}
		return domain.TypeDatetime
	case string:
		return inferString(x)
	case []byte:
		return inferString(string(x))
	}
	if _, isInt, ok := toNumber(v); ok {
		if isInt {
			return domain.TypeInteger
		}
		return domain.TypeFloat
	}
	return domain.TypeString
}

func inferString(s string) domain.ColumnType {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return domain.TypeInteger
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return domain.TypeFloat
	}
	for _, l := range datetimeLayouts {
		if _, err := time.Parse(l, s); err == nil {
			return domain.TypeDatetime
		}
	}
	for _, l := range dateLayouts {
		if _, err := time.Parse(l, s); err == nil {
			return domain.TypeDate
		}
	}
	return domain.TypeString
}

func parseTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case []byte:
		return parseTime(string(x))
	case string:
		s := strings.TrimSpace(x)
		for _, l := range allLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
