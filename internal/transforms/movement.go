package transforms

import (
	"math"

	"github.com/google/uuid"
)

// movementEventsV1 normalizes position packets into per-player movement
// events. Each event carries the absolute position plus, once a prior
// position is known for the player, the deltas and blocks-per-second speed.
func movementEventsV1(raw []byte) ([]byte, error) {
	type lastPos struct {
		ts      float64
		x, y, z float64
	}
	last := make(map[uuid.UUID]lastPos)

	return transformStream(raw, "movement_events_v1", func(obj map[string]any, emit emitFunc) {
		if dir, _ := getString(obj, "dir"); dir == "clientbound" {
			return
		}

		uuidStr, ok := getString(obj, "uuid")
		if !ok {
			return
		}
		playerUUID, err := uuid.Parse(uuidStr)
		if err != nil {
			return
		}
		ts, ok := getF64(obj, "ts")
		if !ok {
			return
		}

		fields, ok := getFields(obj)
		if !ok {
			return
		}
		x, okX := getF64(fields, "x")
		y, okY := getF64(fields, "y")
		z, okZ := getF64(fields, "z")
		if !okX || !okY || !okZ {
			return
		}

		// NaN/Infinity coordinates are malicious input.
		if math.IsNaN(x) || math.IsInf(x, 0) ||
			math.IsNaN(y) || math.IsInf(y, 0) ||
			math.IsNaN(z) || math.IsInf(z, 0) {
			return
		}

		event := map[string]any{
			"ts":   ts,
			"uuid": playerUUID.String(),
			"x":    x,
			"y":    y,
			"z":    z,
		}
		if onGround, ok := getBool(fields, "on_ground"); ok {
			event["on_ground"] = onGround
		}

		if prev, ok := last[playerUUID]; ok && ts > prev.ts {
			dtMS := ts - prev.ts
			dx := x - prev.x
			dy := y - prev.y
			dz := z - prev.z
			dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
			bps := 0.0
			if dtMS > 0 {
				bps = dist / (dtMS / 1000.0)
			}
			event["dt_ms"] = finiteOr0(dtMS)
			event["dx"] = finiteOr0(dx)
			event["dy"] = finiteOr0(dy)
			event["dz"] = finiteOr0(dz)
			event["speed_bps"] = finiteOr0(bps)
		}

		last[playerUUID] = lastPos{ts: ts, x: x, y: y, z: z}
		emit(event)
	})
}
