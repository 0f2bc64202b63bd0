package logic

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/asyncanticheat/ingest-api/internal/models"
)

// builtinDef is one entry of the default module catalog seeded for every
// server on first ingest.
type builtinDef struct {
	name             string
	tier             models.BuiltinTier
	defaultPort      int
	shortDescription string
	fullDescription  string
	checks           []string
}

var builtinModules = []builtinDef{
	{
		name:             "Movement Core",
		tier:             models.TierCore,
		defaultPort:      4030,
		shortDescription: "Blatant movement cheats",
		fullDescription:  "Pareto tier: Catches obvious flight, blatant speed, nofall exploits, and ground spoofing with minimal false positives.",
		checks: []string{
			"movement_core_flight_ascend",
			"movement_core_speed_blatant",
			"movement_core_nofall_ground",
			"movement_core_groundspoof_fall",
			"movement_core_groundspoof_ascend",
		},
	},
	{
		name:             "Movement Advanced",
		tier:             models.TierAdvanced,
		defaultPort:      4031,
		shortDescription: "Subtle movement analysis",
		fullDescription:  "Y-prediction physics, hovering detection, sprint/sneak speed limits, timer manipulation, step height, and noslow bypass.",
		checks: []string{
			"movement_advanced_flight_ypred",
			"movement_advanced_flight_hover",
			"movement_advanced_speed_sprint",
			"movement_advanced_speed_sneak",
			"movement_advanced_timer_fast",
			"movement_advanced_timer_slow",
			"movement_advanced_step_height",
			"movement_advanced_noslow_item",
		},
	},
	{
		name:             "Combat Core",
		tier:             models.TierCore,
		defaultPort:      4032,
		shortDescription: "High-signal combat cheats",
		fullDescription:  "Pareto tier: Simple checks catching 80% of combat cheaters. High CPS, critical reach, multi-target switching, and missing arm animations.",
		checks: []string{
			"combat_core_autoclicker_cps",
			"combat_core_reach_critical",
			"combat_core_killaura_multi",
			"combat_core_noswing",
		},
	},
	{
		name:             "Combat Advanced",
		tier:             models.TierAdvanced,
		defaultPort:      4033,
		shortDescription: "Statistical combat analysis",
		fullDescription:  "Statistical analysis of aim patterns, autoclicker timing distributions, GCD sensitivity checks, and subtle reach accumulation.",
		checks: []string{
			"combat_advanced_aim_headsnap",
			"combat_advanced_aim_pitchspread",
			"combat_advanced_aim_sensitivity",
			"combat_advanced_aim_modulo",
			"combat_advanced_aim_dirswitch",
			"combat_advanced_aim_repeated_yaw",
			"combat_advanced_autoclicker_timing",
			"combat_advanced_autoclicker_variance",
			"combat_advanced_autoclicker_kurtosis",
			"combat_advanced_autoclicker_tickalign",
			"combat_advanced_killaura_post",
			"combat_advanced_reach_distance",
		},
	},
	{
		name:             "Player Core",
		tier:             models.TierCore,
		defaultPort:      4034,
		shortDescription: "Obvious packet abuse",
		fullDescription:  "Pareto tier: Invalid packets (pitch, NaN, slots), impossible abilities, critical fast place/break, and airborne scaffolding.",
		checks: []string{
			"player_core_badpackets_pitch",
			"player_core_badpackets_nan",
			"player_core_badpackets_abilities",
			"player_core_badpackets_slot",
			"player_core_fastplace_critical",
			"player_core_fastbreak_critical",
			"player_core_scaffold_airborne",
		},
	},
	{
		name:             "Player Advanced",
		tier:             models.TierAdvanced,
		defaultPort:      4035,
		shortDescription: "Complex interaction analysis",
		fullDescription:  "Interaction angles, rapid inventory clicks, fast place/break accumulation, and sprint-while-bridging detection.",
		checks: []string{
			"player_advanced_interact_angle",
			"player_advanced_interact_impossible",
			"player_advanced_inventory_fast",
			"player_advanced_fastplace",
			"player_advanced_fastbreak",
			"player_advanced_scaffold_sprint",
		},
	},
}

func defaultBaseURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

// BuiltinModulesInfo returns the builtin catalog for the dashboard.
func BuiltinModulesInfo() []models.BuiltinModuleInfo {
	infos := make([]models.BuiltinModuleInfo, 0, len(builtinModules))
	for _, m := range builtinModules {
		infos = append(infos, models.BuiltinModuleInfo{
			Name:             m.name,
			Tier:             m.tier,
			DefaultPort:      m.defaultPort,
			DefaultBaseURL:   defaultBaseURL(m.defaultPort),
			ShortDescription: m.shortDescription,
			FullDescription:  m.fullDescription,
			Checks:           m.checks,
		})
	}
	return infos
}

// ensureBuiltinModules seeds the builtin module rows for a server inside the
// given transaction. New servers have no server_modules rows at all, which
// would make dispatch a no-op and leave the dashboard empty.
//
// Older deployments are also migrated off the pre-split default modules.
// Those entries must not be recreated or the dashboard keeps re-showing them
// for as long as ingest happens.
func ensureBuiltinModules(ctx context.Context, tx pgx.Tx, serverID string) error {
	// Legacy defaults used local ports 4011/4012, the intermediate tiered
	// split used 4021-4026. Custom modules on other hosts are untouched.
	if _, err := tx.Exec(ctx, `
		DELETE FROM server_modules
		WHERE server_id = $1
		  AND (
		    (base_url LIKE 'http://127.0.0.1:4011%' OR base_url LIKE 'http://localhost:4011%')
		    OR (base_url LIKE 'http://127.0.0.1:4012%' OR base_url LIKE 'http://localhost:4012%')
		    OR (base_url LIKE 'http://127.0.0.1:4021%' OR base_url LIKE 'http://localhost:4021%')
		    OR (base_url LIKE 'http://127.0.0.1:4022%' OR base_url LIKE 'http://localhost:4022%')
		    OR (base_url LIKE 'http://127.0.0.1:4023%' OR base_url LIKE 'http://localhost:4023%')
		    OR (base_url LIKE 'http://127.0.0.1:4024%' OR base_url LIKE 'http://localhost:4024%')
		    OR (base_url LIKE 'http://127.0.0.1:4025%' OR base_url LIKE 'http://localhost:4025%')
		    OR (base_url LIKE 'http://127.0.0.1:4026%' OR base_url LIKE 'http://localhost:4026%')
		  )
	`, serverID); err != nil {
		return fmt.Errorf("delete legacy module urls: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM server_modules
		WHERE server_id = $1
		  AND name IN ('Combat Module', 'Movement Module', 'Player Module')
		  AND (
		    base_url LIKE 'http://127.0.0.1:402%'
		    OR base_url LIKE 'http://localhost:402%'
		  )
	`, serverID); err != nil {
		return fmt.Errorf("delete legacy module names: %w", err)
	}

	for _, m := range builtinModules {
		if _, err := tx.Exec(ctx, `
			INSERT INTO server_modules
				(server_id, name, base_url, enabled, transform, created_at, updated_at)
			VALUES
				($1, $2, $3, true, 'raw_ndjson_gz', now(), now())
			ON CONFLICT (server_id, name) DO NOTHING
		`, serverID, m.name, defaultBaseURL(m.defaultPort)); err != nil {
			return fmt.Errorf("seed builtin module %s: %w", m.name, err)
		}
	}
	return nil
}
