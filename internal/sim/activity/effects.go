package activity

import "math"

// Workbench ids that boost specific trades.
const (
	WorkbenchAnvil      = "anvil"
	WorkbenchCauldron   = "cauldron"
	WorkbenchHerbGarden = "herbGarden"
	WorkbenchDogKennel  = "dogKennel"
)

func oddJobs(env Env) {
	c := env.Character
	key := Attributes[int(env.roll()*5)]
	c.IncreaseAttribute(key, 0.1)
	c.AdjustBar(Stamina, -5)
	c.AdjustMoney(3)
	env.Progress.AddOddJobDay()
}

func resting(env Env) {
	c := env.Character
	_, maxStamina := c.Bar(Stamina)
	c.AdjustBar(Stamina, maxStamina/2)
	c.AdjustBar(Health, 2)
	c.CheckOverage()
}

func meditation(env Env) {
	c := env.Character
	c.FillBar(Stamina)
	c.AdjustBar(Health, 10)
	if env.roll() < 0.01 {
		c.IncreaseAttribute(Spirituality, 0.1)
	}
	if c.ManaUnlocked() {
		c.AdjustBar(Mana, 1)
	}
	c.CheckOverage()
}

func communing(env Env) {
	c := env.Character
	c.FillBar(Stamina)
	c.FillBar(Health)
	c.FillBar(Mana)
	c.IncreaseAttribute(Spirituality, 0.1)
	c.CheckOverage()
}

// begging returns the effect for one begging grade.
func begging(gain, base, charismaScale float64) Effect {
	return func(env Env) {
		c := env.Character
		c.IncreaseAttribute(Charisma, gain)
		c.AdjustBar(Stamina, -5)
		c.AdjustMoney(base + math.Log2(c.Attribute(Charisma)*charismaScale))
		env.Progress.AddBeggingDay()
	}
}

type smithingGrade struct {
	apprentice   bool
	gain         float64
	stamina      float64
	fireLore     bool
	metalLoreMul float64
	chance       float64
	anvilBonus   float64
	loreGain     float64
	gradeDivisor float64 // 0: junk instead of a weapon
}

func blacksmithing(g smithingGrade) Effect {
	return func(env Env) {
		c := env.Character
		if g.apprentice {
			env.Progress.ClaimApprenticeship(Blacksmithing)
		}
		c.IncreaseAttribute(Strength, g.gain)
		c.IncreaseAttribute(Toughness, g.gain)
		c.AdjustBar(Stamina, -g.stamina)
		money := math.Log2(c.Attribute(Strength)+c.Attribute(Toughness)) + c.Attribute(MetalLore)*g.metalLoreMul
		if g.fireLore {
			money += c.Attribute(FireLore)
		}
		c.AdjustMoney(money)

		chance := g.chance
		if env.workbench() == WorkbenchAnvil {
			chance += g.anvilBonus
		}
		if env.roll() >= chance {
			return
		}
		c.IncreaseAttribute(MetalLore, g.loreGain)
		if g.gradeDivisor == 0 {
			env.Inventory.AddItem("junk")
			return
		}
		if env.Inventory.OpenSlots() > 0 {
			if grade := env.Inventory.Consume("metal"); grade >= 1 {
				env.Inventory.AddWeapon(grade/g.gradeDivisor+math.Floor(math.Log2(c.Attribute(MetalLore))), "metal")
			}
		}
	}
}

func gatherHerbs(env Env) {
	c := env.Character
	c.IncreaseAttribute(Intelligence, 0.1)
	c.IncreaseAttribute(Speed, 0.1)
	c.AdjustBar(Stamina, -10)
	env.Inventory.GenerateHerb()
	if env.workbench() == WorkbenchHerbGarden {
		env.Inventory.GenerateHerb()
	}
	if env.roll() < 0.01 {
		c.IncreaseAttribute(WoodLore, 0.1)
	}
}

func alchemyApprentice(env Env) {
	c := env.Character
	env.Progress.ClaimApprenticeship(Alchemy)
	c.IncreaseAttribute(Intelligence, 0.1)
	c.AdjustBar(Stamina, -10)
	c.AdjustMoney(math.Log2(c.Attribute(Intelligence)) + c.Attribute(WaterLore))
	chance := 0.01
	if env.workbench() == WorkbenchCauldron {
		chance += 0.05
	}
	if env.roll() < chance {
		c.IncreaseAttribute(WoodLore, 0.05)
		c.IncreaseAttribute(WaterLore, 0.1)
	}
}

func alchemyJourneyman(env Env) {
	c := env.Character
	env.Progress.ClaimApprenticeship(Alchemy)
	c.IncreaseAttribute(Intelligence, 0.2)
	c.AdjustBar(Stamina, -10)
	c.AdjustMoney(math.Log2(c.Attribute(Intelligence)) + c.Attribute(WaterLore)*2)
	chance := 0.02
	if env.workbench() == WorkbenchCauldron {
		chance += 0.05
	}
	if env.roll() < chance {
		c.IncreaseAttribute(WoodLore, 0.1)
		c.IncreaseAttribute(WaterLore, 0.2)
		brew(env, 0, false)
	}
}

func alchemist(env Env) {
	c := env.Character
	c.IncreaseAttribute(Intelligence, 0.5)
	c.AdjustBar(Stamina, -10)
	c.AdjustMoney(math.Log2(c.Attribute(Intelligence)) + c.Attribute(WaterLore)*5)
	chance := 1 - math.Exp(-0.025*math.Log(c.Attribute(WaterLore)))
	if env.workbench() == WorkbenchCauldron {
		chance += 0.05
	}
	if env.roll() < chance {
		c.IncreaseAttribute(WoodLore, 0.2)
		c.IncreaseAttribute(WaterLore, 0.3)
		brew(env, 1, false)
	}
}

func masterAlchemy(env Env) {
	c := env.Character
	c.IncreaseAttribute(Intelligence, 1)
	c.AdjustBar(Stamina, -20)
	c.AdjustMoney(math.Log2(c.Attribute(Intelligence)) + c.Attribute(WaterLore)*10)
	c.IncreaseAttribute(WoodLore, 0.3)
	c.IncreaseAttribute(WaterLore, 0.6)
	brew(env, 1, true)
}

func brew(env Env, bonus float64, pill bool) {
	if env.Inventory.OpenSlots() <= 0 {
		return
	}
	grade := env.Inventory.Consume("ingredient")
	if grade < 1 {
		return
	}
	grade += math.Floor(math.Log2(env.Character.Attribute(WaterLore)))
	env.Inventory.GeneratePotion(grade+bonus, pill)
}

func chopWood(env Env) {
	c := env.Character
	c.IncreaseAttribute(Strength, 0.1)
	c.AdjustBar(Stamina, -10)
	env.Inventory.AddWood()
	if env.roll() < 0.01 {
		c.IncreaseAttribute(WoodLore, 0.1)
	}
}

// craftGrade describes one grade of the woodworking and leatherworking trades,
// which share a shape and differ only in attributes and products.
type craftGrade struct {
	trade      Type
	apprentice bool
	first      Attribute
	second     Attribute
	lore       Attribute
	gain       float64
	loreMul    float64
	loreGain   float64
	produce    func(env Env, lore float64)
}

func craft(g craftGrade) Effect {
	return func(env Env) {
		c := env.Character
		if g.apprentice {
			env.Progress.ClaimApprenticeship(g.trade)
		}
		c.IncreaseAttribute(g.first, g.gain)
		c.IncreaseAttribute(g.second, g.gain)
		c.AdjustBar(Stamina, -20)
		c.AdjustMoney(math.Log2(c.Attribute(g.first)+c.Attribute(g.second)) + c.Attribute(g.lore)*g.loreMul)
		if env.roll() >= 0.01 {
			return
		}
		c.IncreaseAttribute(g.lore, g.loreGain)
		if g.produce != nil && env.Inventory.OpenSlots() > 0 {
			g.produce(env, c.Attribute(g.lore))
		}
	}
}

func carveWeapon(env Env, lore float64) {
	if grade := env.Inventory.Consume("wood"); grade >= 1 {
		env.Inventory.AddWeapon(grade+math.Floor(math.Log2(lore)), "wood")
	}
}

func tanArmor(env Env, lore float64) {
	if grade := env.Inventory.Consume("hide"); grade >= 1 {
		env.Inventory.AddArmor(grade+math.Floor(math.Log2(lore)), "leather")
	}
}

func farming(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -20)
	power := int(math.Floor(math.Log10(c.Attribute(WoodLore) + c.Attribute(EarthLore))))
	if power < 1 {
		power = 1
	}
	env.Home.WorkFields(power)
	c.IncreaseAttribute(Strength, 0.1)
	c.IncreaseAttribute(Speed, 0.1)
	if env.roll() < 0.01 {
		c.IncreaseAttribute(WoodLore, 0.1)
		c.IncreaseAttribute(EarthLore, 0.1)
	}
}

func mining(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -20)
	c.IncreaseAttribute(Strength, 0.1)
	if env.roll() < 0.5 {
		c.IncreaseAttribute(EarthLore, 0.1)
		env.Inventory.AddOre()
	}
}

func smelting(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -20)
	c.IncreaseAttribute(Toughness, 0.1)
	c.IncreaseAttribute(Intelligence, 0.1)
	if env.Inventory.OpenSlots() > 0 {
		if grade := env.Inventory.Consume("ore"); grade >= 1 {
			env.Inventory.AddBar(grade)
		}
	}
}

func hunting(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -50)
	c.IncreaseAttribute(Speed, 0.1)
	chance := 0.1
	if env.workbench() == WorkbenchDogKennel {
		chance += 0.4
	}
	if env.roll() < chance {
		c.IncreaseAttribute(AnimalHandling, 0.1)
		env.Inventory.AddItem("meat")
		env.Inventory.AddItem("hide")
	}
	if env.roll() < 0.01 {
		env.Battle.AddEnemy("wolf")
	}
}

func fishing(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -50)
	c.IncreaseAttribute(Strength, 0.1)
	c.IncreaseAttribute(Intelligence, 0.1)
	if env.roll() < 0.2 {
		c.IncreaseAttribute(AnimalHandling, 0.1)
		c.IncreaseAttribute(WaterLore, 0.05)
		env.Inventory.AddItem("carp")
	}
}

func burning(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -5)
	cost := c.IncreaseAttribute(FireLore, 0.1)
	c.AdjustMoney(-cost)
	clampMoney(c)
}

func bodyCultivation(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -100)
	for _, a := range []Attribute{Strength, Speed, Toughness} {
		c.IncreaseAttribute(a, 1)
		c.AddAptitude(a, 0.1)
	}
	if env.roll() < 0.01 {
		c.IncreaseAttribute(Spirituality, 0.1)
	}
}

func mindCultivation(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -100)
	for _, a := range []Attribute{Intelligence, Charisma} {
		c.IncreaseAttribute(a, 1)
		c.AddAptitude(a, 0.1)
	}
	if env.roll() < 0.01 {
		c.IncreaseAttribute(Spirituality, 0.1)
	}
}

func coreCultivation(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -200)
	if c.ManaUnlocked() {
		if env.roll() < 0.01 {
			c.RaiseBarMax(Mana, 1)
		}
		return
	}
	injure(c, 0.1)
	env.Log.AddMessage("You fail miserably at cultivating your core and hurt yourself badly.", LogInjury, LogEvent)
}

func recruiting(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -100)
	c.AdjustMoney(-1000000)
	clampMoney(c)
	if env.Followers.Unlocked() && c.Money() > 0 {
		if env.roll() < 0.01 {
			env.Followers.Generate()
		}
		return
	}
	injure(c, 0.1)
	env.Log.AddMessage("You fail miserably at your attempt to recruit followers. An angry mob chases you down and gives you a beating for your arrogance.", LogInjury, LogEvent)
}

func swimDeeper(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -20)
	c.AdjustBar(Health, -100)
	if env.Trials.AddProgress(TrialSwim) {
		env.Log.AddMessage("You have achieved the impossible and dived all the way to the bottom of the ocean.", LogStandard, LogStory)
	}
}

func forgeChains(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -100)
	metal := env.Inventory.Consume("metal")
	if env.workbench() == WorkbenchAnvil && metal >= 150 {
		if env.roll() > 0.01 {
			env.Log.AddMessage("Your anvil rings with power, a new chain is forged!", LogStandard, LogEvent)
			env.Inventory.AddItem("unbreakableChain")
		}
		return
	}
	env.Log.AddMessage("You fumble with the wrong tools and materials and hurt yourself.", LogInjury, LogEvent)
	injure(c, 0.05)
}

func attachChains(env Env) {
	c := env.Character
	c.AdjustBar(Stamina, -1000)
	if env.Inventory.Consume("chain") > 0 {
		env.Log.AddMessage("You attach a chain to the island and give your chains a tug.", LogStandard, LogEvent)
		if env.Trials.AddProgress(TrialRaiseIsland) {
			env.Log.AddMessage("With a mighty pull, the island comes loose. You haul it to the surface.", LogStandard, LogStory)
		}
		return
	}
	env.Log.AddMessage("You fumble around in the depths without a chain until a shark comes by and takes a bite.", LogInjury, LogEvent)
	injure(c, 0.05)
}

// injure removes a fraction of maximum health.
func injure(c Character, fraction float64) {
	_, maxHealth := c.Bar(Health)
	c.AdjustBar(Health, -maxHealth*fraction)
}

func clampMoney(c Character) {
	if m := c.Money(); m < 0 {
		c.AdjustMoney(-m)
	}
}
