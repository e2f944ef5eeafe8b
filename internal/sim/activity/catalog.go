package activity

import (
	"fmt"

	"immortal.idle/internal/sim/catalogs"
)

// Build returns a fresh activity collection for mode: every activity at level 0
// with the mode's default unlock flags. Texts and requirements come from the
// tables; effects are bound here by type and level.
func Build(mode Mode, tables *catalogs.Catalogs) ([]*Activity, error) {
	if tables == nil {
		return nil, fmt.Errorf("build %s: nil catalogs", mode)
	}
	switch mode {
	case ModeNormal:
		return buildNormal(tables)
	case ModeSwim:
		return buildSwim(tables)
	case ModeRaiseIsland:
		return buildRaiseIsland(tables)
	default:
		return nil, fmt.Errorf("build: unknown mode %q", mode)
	}
}

func buildNormal(tables *catalogs.Catalogs) ([]*Activity, error) {
	return assemble(tables, ModeNormal, normalEffects())
}

// Challenge modes replace the whole catalog and every activity is selectable
// from the start.
func buildSwim(tables *catalogs.Catalogs) ([]*Activity, error) {
	acts, err := assemble(tables, ModeSwim, map[Type][]Effect{
		Swim: {swimDeeper},
	})
	if err != nil {
		return nil, err
	}
	forceUnlock(acts)
	return acts, nil
}

func buildRaiseIsland(tables *catalogs.Catalogs) ([]*Activity, error) {
	acts, err := assemble(tables, ModeRaiseIsland, map[Type][]Effect{
		ForgeChains:  {forgeChains},
		AttachChains: {attachChains},
	})
	if err != nil {
		return nil, err
	}
	forceUnlock(acts)
	return acts, nil
}

func forceUnlock(acts []*Activity) {
	for _, a := range acts {
		a.Unlocked = true
	}
}

func normalEffects() map[Type][]Effect {
	return map[Type][]Effect{
		OddJobs: {oddJobs},
		Resting: {resting, meditation, communing},
		Begging: {
			begging(0.1, 3, 1),
			begging(0.2, 10, 1),
			begging(0.3, 20, 2),
			begging(0.5, 30, 10),
		},
		Blacksmithing: {
			blacksmithing(smithingGrade{apprentice: true, gain: 0.1, stamina: 25, metalLoreMul: 1, chance: 0.01, anvilBonus: 0.05, loreGain: 0.1}),
			blacksmithing(smithingGrade{apprentice: true, gain: 0.2, stamina: 25, metalLoreMul: 2, chance: 0.02, anvilBonus: 0.05, loreGain: 0.2, gradeDivisor: 10}),
			blacksmithing(smithingGrade{gain: 0.5, stamina: 25, fireLore: true, metalLoreMul: 5, chance: 0.05, anvilBonus: 0.05, loreGain: 0.3, gradeDivisor: 10}),
			blacksmithing(smithingGrade{gain: 1, stamina: 50, fireLore: true, metalLoreMul: 10, chance: 0.2, anvilBonus: 0.2, loreGain: 0.5, gradeDivisor: 5}),
		},
		GatherHerbs: {gatherHerbs},
		Alchemy:     {alchemyApprentice, alchemyJourneyman, alchemist, masterAlchemy},
		ChopWood:    {chopWood},
		Woodworking: {
			craft(craftGrade{trade: Woodworking, apprentice: true, first: Strength, second: Intelligence, lore: WoodLore, gain: 0.1, loreMul: 1, loreGain: 0.1}),
			craft(craftGrade{trade: Woodworking, apprentice: true, first: Strength, second: Intelligence, lore: WoodLore, gain: 0.2, loreMul: 2, loreGain: 0.2, produce: carveWeapon}),
			craft(craftGrade{trade: Woodworking, first: Strength, second: Intelligence, lore: WoodLore, gain: 0.5, loreMul: 5, loreGain: 0.3, produce: carveWeapon}),
		},
		Leatherworking: {
			craft(craftGrade{trade: Leatherworking, apprentice: true, first: Speed, second: Toughness, lore: AnimalHandling, gain: 0.1, loreMul: 1, loreGain: 0.1}),
			craft(craftGrade{trade: Leatherworking, apprentice: true, first: Speed, second: Toughness, lore: AnimalHandling, gain: 0.2, loreMul: 2, loreGain: 0.2, produce: tanArmor}),
			craft(craftGrade{trade: Leatherworking, first: Speed, second: Toughness, lore: AnimalHandling, gain: 0.5, loreMul: 5, loreGain: 0.3, produce: tanArmor}),
		},
		Farming:         {farming},
		Mining:          {mining},
		Smelting:        {smelting},
		Hunting:         {hunting},
		Fishing:         {fishing},
		Burning:         {burning},
		BodyCultivation: {bodyCultivation},
		MindCultivation: {mindCultivation},
		CoreCultivation: {coreCultivation},
		Recruiting:      {recruiting},
	}
}

func assemble(tables *catalogs.Catalogs, mode Mode, effects map[Type][]Effect) ([]*Activity, error) {
	defs, ok := tables.Activities.Mode(string(mode))
	if !ok {
		return nil, fmt.Errorf("build %s: mode missing from activity tables", mode)
	}
	acts := make([]*Activity, 0, len(defs))
	for _, d := range defs {
		t := Type(d.Type)
		bound, ok := effects[t]
		if !ok {
			return nil, fmt.Errorf("build %s: no effects bound for %s", mode, t)
		}
		if len(bound) != len(d.Levels) {
			return nil, fmt.Errorf("build %s: %s has %d levels in tables but %d effects", mode, t, len(d.Levels), len(bound))
		}
		a := &Activity{
			Type:                    t,
			Unlocked:                d.Unlocked,
			Baseline:                d.Baseline,
			SkipApprenticeshipLevel: d.SkipApprenticeshipLevel,
			Levels:                  make([]Level, len(d.Levels)),
		}
		for i, l := range d.Levels {
			req := make(Requirements, len(l.Requirements))
			for k, v := range l.Requirements {
				attr := Attribute(k)
				if !knownAttribute(attr) {
					return nil, fmt.Errorf("build %s: %s level %d: unknown attribute %q", mode, t, i, k)
				}
				req[attr] = v
			}
			a.Levels[i] = Level{
				Name:                   l.Name,
				Description:            l.Description,
				ConsequenceDescription: l.Consequence,
				Requirements:           req,
				Effect:                 bound[i],
			}
		}
		acts = append(acts, a)
	}
	if len(acts) != len(effects) {
		return nil, fmt.Errorf("build %s: tables define %d activities, %d are bound", mode, len(acts), len(effects))
	}
	return acts, nil
}
