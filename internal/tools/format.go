package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/leonardcser/objcache-mcp/internal/cache"
	"github.com/leonardcser/objcache-mcp/internal/value"
)

type recordView struct {
	ID        cache.Key         `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt,omitzero"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Data      any               `json:"data"`
}

// printable replaces binary leaves with a short placeholder.
func printable(v value.Value) any {
	switch v.Kind() {
	case value.KindBinary:
		return fmt.Sprintf("<binary %d bytes>", len(v.Bytes()))
	case value.KindArray:
		out := make([]any, len(v.Items()))
		for i, e := range v.Items() {
			out[i] = printable(e)
		}
		return out
	case value.KindMap:
		out := make(map[string]any, len(v.Fields()))
		for k, e := range v.Fields() {
			out[k] = printable(e)
		}
		return out
	}
	return v.Any()
}

func formatRecord(rec cache.Record) string {
	b, err := json.MarshalIndent(recordView{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
		Metadata:  rec.Metadata,
		Data:      printable(rec.Data),
	}, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(b)
}

func formatRecords(recs []cache.Record) string {
	if len(recs) == 0 {
		return "No records."
	}
	var sb strings.Builder
	for i, rec := range recs {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, rec.ID))
		if !rec.ExpiresAt.IsZero() {
			sb.WriteString(" (expires ")
			sb.WriteString(rec.ExpiresAt.Format(time.RFC3339))
			sb.WriteString(")")
		}
		sb.WriteString(fmt.Sprintf("\n   %d bytes", value.EstimateSize(rec.Data)))
		if i < len(recs)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func formatStats(st cache.Stats) string {
	return fmt.Sprintf("Items: %d\nSize: %d bytes\nExpired, pending sweep: %d",
		st.TotalItems, st.TotalSizeBytes, st.ExpiredItemsPending)
}
