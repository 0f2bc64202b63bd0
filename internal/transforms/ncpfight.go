package transforms

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// defaultEyeHeight is the standing eye offset added to the attacker's feet
// position before reach geometry.
const defaultEyeHeight = 1.62

// ncpFightV1 emits enriched attack events with best-effort target position
// tracking from clientbound entity packets within the batch. Reach and aim
// offset are derived server-side so fight modules stay simple.
func ncpFightV1(raw []byte) ([]byte, error) {
	type vec3 struct {
		x, y, z float64
	}
	type playerPose struct {
		x, y, z, yaw, pitch float64
	}

	entityPos := make(map[int64]vec3)
	playerPoses := make(map[uuid.UUID]playerPose)

	return transformStream(raw, "ncp_fight_v1", func(obj map[string]any, emit emitFunc) {
		ts, ok := getF64(obj, "ts")
		if !ok {
			return
		}
		pkt, _ := getString(obj, "pkt")
		dir, _ := getString(obj, "dir")
		fields, ok := getFields(obj)
		if !ok {
			return
		}

		if dir == "clientbound" {
			// Spawn and teleport carry absolute coordinates.
			if strings.Contains(pkt, "SPAWN") || strings.Contains(pkt, "ENTITY_TELEPORT") {
				id, okID := getF64(fields, "entity_id")
				x, okX := getF64(fields, "x")
				y, okY := getF64(fields, "y")
				z, okZ := getF64(fields, "z")
				if okID && okX && okY && okZ {
					entityPos[int64(id)] = vec3{x: x, y: y, z: z}
				}
				return
			}

			if strings.Contains(pkt, "ENTITY_RELATIVE_MOVE") {
				id, okID := getF64(fields, "entity_id")
				if okID {
					if p, ok := entityPos[int64(id)]; ok {
						dx, _ := getF64(fields, "dx")
						dy, _ := getF64(fields, "dy")
						dz, _ := getF64(fields, "dz")
						entityPos[int64(id)] = vec3{x: p.x + dx, y: p.y + dy, z: p.z + dz}
					}
				}
				return
			}

			if strings.Contains(pkt, "DESTROY_ENTITIES") {
				if ids, ok := fields["entity_ids"].([]any); ok {
					for _, raw := range ids {
						if id, ok := raw.(float64); ok {
							delete(entityPos, int64(id))
						}
					}
				}
				return
			}
			return
		}

		if dir == "serverbound" && (strings.Contains(pkt, "POSITION") || strings.Contains(pkt, "ROTATION") || strings.Contains(pkt, "FLYING")) {
			uuidStr, ok := getString(obj, "uuid")
			if !ok {
				return
			}
			playerUUID, err := uuid.Parse(uuidStr)
			if err != nil {
				return
			}

			x, okX := getF64(fields, "x")
			y, okY := getF64(fields, "y")
			z, okZ := getF64(fields, "z")
			yaw, okYaw := getF64(fields, "yaw")
			pitch, okPitch := getF64(fields, "pitch")

			if prev, ok := playerPoses[playerUUID]; ok {
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
				playerPoses[playerUUID] = playerPose{x: x, y: y, z: z, yaw: yaw, pitch: pitch}
			} else if okX && okY && okZ {
				// First pose needs real coordinates; a rotation-only packet
				// must not seed a bogus (0,0,0) origin.
				playerPoses[playerUUID] = playerPose{x: x, y: y, z: z, yaw: yaw, pitch: pitch}
			}
			return
		}

		if dir == "serverbound" && (strings.Contains(pkt, "INTERACT_ENTITY") || strings.Contains(pkt, "USE_ENTITY")) {
			if action, _ := getString(fields, "action"); action != "ATTACK" {
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
			entityIDF, ok := getF64(fields, "entity_id")
			if !ok {
				return
			}
			entityID := int64(entityIDF)

			pose, ok := playerPoses[playerUUID]
			if !ok {
				// No pose, nothing to enrich with.
				return
			}

			event := map[string]any{
				"ts":           ts,
				"uuid":         playerUUID.String(),
				"entity_id":    entityID,
				"player_x":     finiteOr0(pose.x),
				"player_y":     finiteOr0(pose.y),
				"player_z":     finiteOr0(pose.z),
				"player_yaw":   finiteOr0(pose.yaw),
				"player_pitch": finiteOr0(pose.pitch),
			}

			if target, ok := entityPos[entityID]; ok {
				event["target_x"] = finiteOr0(target.x)
				event["target_y"] = finiteOr0(target.y)
				event["target_z"] = finiteOr0(target.z)

				eye := vec3{x: pose.x, y: pose.y + defaultEyeHeight, z: pose.z}
				r := vec3{x: target.x - eye.x, y: target.y - eye.y, z: target.z - eye.z}
				event["reach_distance"] = finiteOr0(math.Sqrt(r.x*r.x + r.y*r.y + r.z*r.z))

				// View direction from yaw/pitch in degrees: yaw rotates
				// around Y, pitch tilts up/down.
				yawRad := pose.yaw * math.Pi / 180.0
				pitchRad := pose.pitch * math.Pi / 180.0
				d := vec3{
					x: -math.Cos(pitchRad) * math.Sin(yawRad),
					y: -math.Sin(pitchRad),
					z: math.Cos(pitchRad) * math.Cos(yawRad),
				}
				dLen := math.Max(math.Sqrt(d.x*d.x+d.y*d.y+d.z*d.z), 1e-9)
				cross := vec3{
					x: r.y*d.z - r.z*d.y,
					y: r.z*d.x - r.x*d.z,
					z: r.x*d.y - r.y*d.x,
				}
				off := math.Sqrt(cross.x*cross.x+cross.y*cross.y+cross.z*cross.z) / dLen
				event["aim_off"] = finiteOr0(off)
			}

			emit(event)
		}
	})
}
