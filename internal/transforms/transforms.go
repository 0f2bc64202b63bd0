// Package transforms converts raw packet batches into higher-level event
// streams before dispatch to analysis modules. A transform is a pure
// function from gzipped NDJSON to gzipped NDJSON, identified by a tag stored
// on the module row:
//
//   - raw_ndjson_gz: pass-through, no transformation
//   - movement_events_v1_ndjson_gz: normalized movement events with deltas and speed
//   - combat_events_v1_ndjson_gz: attack events with timing and target info
//   - ncp_fight_v1_ndjson_gz: attack events enriched with reach/aim geometry
package transforms

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const (
	TagRaw        = "raw_ndjson_gz"
	TagMovementV1 = "movement_events_v1_ndjson_gz"
	TagCombatV1   = "combat_events_v1_ndjson_gz"
	TagNCPFightV1 = "ncp_fight_v1_ndjson_gz"
)

// maxLineBytes bounds a single NDJSON line during streaming decode.
const maxLineBytes = 4 * 1024 * 1024

// Apply runs the named transform over a raw gzipped NDJSON batch. An empty
// or raw tag is the identity. Unknown tags are an error so the dispatcher
// can fail that module's delivery with a reason.
func Apply(tag string, raw []byte) ([]byte, error) {
	t := strings.TrimSpace(tag)
	switch {
	case t == "" || strings.EqualFold(t, TagRaw):
		return raw, nil
	case strings.EqualFold(t, TagMovementV1):
		return movementEventsV1(raw)
	case strings.EqualFold(t, TagCombatV1):
		return combatEventsV1(raw)
	case strings.EqualFold(t, TagNCPFightV1):
		return ncpFightV1(raw)
	default:
		return nil, fmt.Errorf("unsupported transform: %s", tag)
	}
}

// ShortName is the transform identifier written into the metadata line,
// the tag without its encoding suffix.
func ShortName(tag string) string {
	return strings.TrimSuffix(strings.TrimSpace(tag), "_ndjson_gz")
}

// emitFunc appends one JSON object as an output line.
type emitFunc func(obj map[string]any)

// transformStream drives a line-by-line pass over the decompressed input
// without ever materializing the full body. The first line is metadata and
// is passed through with an added "transform" field; every other parseable
// line goes to proc. Malformed lines are dropped silently.
func transformStream(raw []byte, name string, proc func(obj map[string]any, emit emitFunc)) ([]byte, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("gzip decode: %w", err)
	}
	defer gzr.Close()

	var out bytes.Buffer
	gzw := gzip.NewWriter(&out)

	var encodeErr error
	emit := func(obj map[string]any) {
		if encodeErr != nil {
			return
		}
		b, err := json.Marshal(obj)
		if err != nil {
			encodeErr = err
			return
		}
		if _, err := gzw.Write(append(b, '\n')); err != nil {
			encodeErr = err
		}
	}

	sc := bufio.NewScanner(gzr)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}

		if first {
			first = false
			meta := map[string]any{}
			if err := json.Unmarshal([]byte(line), &meta); err != nil {
				meta = map[string]any{}
			}
			meta["transform"] = name
			emit(meta)
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}
		proc(obj, emit)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	if encodeErr != nil {
		return nil, fmt.Errorf("encode output: %w", encodeErr)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("gzip encode: %w", err)
	}
	return out.Bytes(), nil
}

func getString(obj map[string]any, key string) (string, bool) {
	v, ok := obj[key].(string)
	return v, ok
}

func getF64(obj map[string]any, key string) (float64, bool) {
	v, ok := obj[key].(float64)
	return v, ok
}

func getBool(obj map[string]any, key string) (bool, bool) {
	v, ok := obj[key].(bool)
	return v, ok
}

func getFields(obj map[string]any) (map[string]any, bool) {
	v, ok := obj["fields"].(map[string]any)
	return v, ok
}

// finiteOr0 keeps computed values JSON-encodable; NaN/Inf become 0.
func finiteOr0(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
