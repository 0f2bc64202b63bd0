package transforms

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// combatEventsV1 extracts attack events (INTERACT/USE_ENTITY with
// action=ATTACK) and enriches them with the attacker's last known pose,
// inter-attack timing, target switching, and yaw deltas.
func combatEventsV1(raw []byte) ([]byte, error) {
	type lastAttack struct {
		ts       float64
		entityID int64
		yaw      *float64
	}
	type pose struct {
		x, y, z, yaw, pitch float64
	}

	lastAttacks := make(map[uuid.UUID]lastAttack)
	lastPose := make(map[uuid.UUID]pose)

	return transformStream(raw, "combat_events_v1", func(obj map[string]any, emit emitFunc) {
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
		pkt, _ := getString(obj, "pkt")
		fields, hasFields := getFields(obj)

		// Position/rotation packets only refresh pose context.
		if strings.Contains(pkt, "POSITION") || strings.Contains(pkt, "ROTATION") {
			if hasFields {
				x, okX := getF64(fields, "x")
				y, okY := getF64(fields, "y")
				z, okZ := getF64(fields, "z")
				yaw, okYaw := getF64(fields, "yaw")
				pitch, okPitch := getF64(fields, "pitch")

				if prev, ok := lastPose[playerUUID]; ok {
					if !okX {
						x = prev.x
					}
					if !okY {
						y = prev.y
					}
					if !okZ {
						z = prev.z
					}
					if !okYaw {
						yaw = prev.yaw
					}
					if !okPitch {
						pitch = prev.pitch
					}
					lastPose[playerUUID] = pose{x: x, y: y, z: z, yaw: yaw, pitch: pitch}
				} else if okX && okY && okZ {
					lastPose[playerUUID] = pose{x: x, y: y, z: z, yaw: yaw, pitch: pitch}
				}
			}
			return
		}

		if !strings.Contains(pkt, "INTERACT") && !strings.Contains(pkt, "USE_ENTITY") {
			return
		}
		if !hasFields {
			return
		}
		if action, _ := getString(fields, "action"); action != "ATTACK" {
			return
		}

		entityID := int64(-1)
		if v, ok := getF64(fields, "entity_id"); ok {
			entityID = int64(v)
		}
		sneaking, _ := getBool(fields, "sneaking")

		event := map[string]any{
			"ts":        ts,
			"uuid":      playerUUID.String(),
			"entity_id": entityID,
			"sneaking":  sneaking,
		}

		currPose, hasPose := lastPose[playerUUID]
		if hasPose {
			event["player_x"] = finiteOr0(currPose.x)
			event["player_y"] = finiteOr0(currPose.y)
			event["player_z"] = finiteOr0(currPose.z)
			event["player_yaw"] = finiteOr0(currPose.yaw)
			event["player_pitch"] = finiteOr0(currPose.pitch)
		}

		if prev, ok := lastAttacks[playerUUID]; ok {
			dtMS := math.Max(ts-prev.ts, 0)
			event["dt_ms"] = finiteOr0(dtMS)
			if dtMS > 0 {
				event["attacks_per_second"] = finiteOr0(1000.0 / dtMS)
			}
			event["target_switched"] = entityID != prev.entityID
			if prev.yaw != nil && hasPose {
				event["yaw_diff"] = finiteOr0(yawDifference(currPose.yaw, *prev.yaw))
			}
		}

		attack := lastAttack{ts: ts, entityID: entityID}
		if hasPose {
			yaw := currPose.yaw
			attack.yaw = &yaw
		}
		lastAttacks[playerUUID] = attack

		emit(event)
	})
}

// yawDifference is the absolute yaw delta with wraparound at 360 degrees,
// so the result is always in [0, 180].
func yawDifference(yaw1, yaw2 float64) float64 {
	diff := math.Abs(yaw1 - yaw2)
	if diff > 180.0 {
		diff = 360.0 - diff
	}
	return diff
}
