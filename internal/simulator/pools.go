package simulator

import "math/rand/v2"

// Pools is the content the simulator draws usernames and messages from.
// "Local" entries make up the bulk of the audience; "international" ones are
// sprinkled in according to the configured ratios.
type Pools struct {
	LocalUsernames         []string
	InternationalUsernames []string
	LocalMessages          []string
	InternationalMessages  []string
	JoinMessage            string
}

// DefaultPools returns the built-in Kenyan-flavoured content pools.
func DefaultPools() Pools {
	return Pools{
		LocalUsernames: []string{
			"kamau_254", "wanjiku_ke", "kipchoge_fan", "nairobi_finest",
			"mkenya_halisi", "safari_lover", "simba_pride", "jambo_kenya",
			"maasai_morani", "tuko_pamoja", "hakuna_matata", "mombasa_bae",
			"kikuyu_princess", "kalenjin_warrior", "luo_finest", "samburu_queen",
		},
		InternationalUsernames: []string{
			"emma_uk", "john_usa", "tokyo_fan", "paris_lover",
			"aussie_mate", "canadian_eh", "nigeria_prince", "south_africa_love",
		},
		LocalMessages: []string{
			"Wewe ni moto sana! 🔥",
			"Nakupenda sana! ❤️",
			"Umetuletea Kenya kwenye ramani! 👏",
			"Sisi Wakenya tunakupenda sana!",
			"Unatufanya proud! 🇰🇪",
			"Mwanake wa Kenyan! 💯",
			"Ubarikiwe sana! 🙏",
			"Nairobi tunakupenda!",
			"Mombasa inakusalimia! 🌊",
			"Kisumu proud! 👑",
			"Eldoret tunakuwatch! 🏃‍♂️",
			"Nakuru inakupenda! ❤️",
			"Asante kwa kutuwakilisha! 🇰🇪",
			"Umechoma leo! 🔥",
			"Endelea kutufanya proud! 👏",
		},
		InternationalMessages: []string{
			"Hello from London! Love Kenya! 🇬🇧❤️🇰🇪",
			"Greetings from USA! Kenya is beautiful! 🇺🇸",
			"I visited Kenya last year, amazing country! 🌍",
			"Love your content from Australia! 🇦🇺",
			"Sending love from Nigeria! 🇳🇬",
			"Canada loves Kenya! 🇨🇦❤️🇰🇪",
			"Japan here! Kenya safari was the best! 🇯🇵",
			"South Africa loves our Kenyan neighbors! 🇿🇦",
			"I'm learning Swahili because of you! 🌍",
			"Kenya has the best wildlife! Planning my visit! 🦁",
		},
		JoinMessage: "Just joined! 👋",
	}
}

// withDefaults fills every empty pool from DefaultPools.
func (p Pools) withDefaults() Pools {
	d := DefaultPools()
	if len(p.LocalUsernames) == 0 {
		p.LocalUsernames = d.LocalUsernames
	}
	if len(p.InternationalUsernames) == 0 {
		p.InternationalUsernames = d.InternationalUsernames
	}
	if len(p.LocalMessages) == 0 {
		p.LocalMessages = d.LocalMessages
	}
	if len(p.InternationalMessages) == 0 {
		p.InternationalMessages = d.InternationalMessages
	}
	if p.JoinMessage == "" {
		p.JoinMessage = d.JoinMessage
	}
	return p
}

func (p Pools) username(r *rand.Rand, local bool) string {
	if local {
		return pick(r, p.LocalUsernames)
	}
	return pick(r, p.InternationalUsernames)
}

func (p Pools) message(r *rand.Rand, local bool) string {
	if local {
		return pick(r, p.LocalMessages)
	}
	return pick(r, p.InternationalMessages)
}

func pick(r *rand.Rand, items []string) string {
	return items[r.IntN(len(items))]
}
