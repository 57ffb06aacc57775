package exam

// Skill is the closed set of exam paper kinds. Anything reaching a paper
// table goes through this type rather than a raw string.
type Skill string

const (
	SkillListening Skill = "listening"
	SkillReading   Skill = "reading"
	SkillWriting   Skill = "writing"
	SkillSpeaking  Skill = "speaking"
)

func ParseSkill(s string) (Skill, bool) {
	switch Skill(s) {
	case SkillListening, SkillReading, SkillWriting, SkillSpeaking:
		return Skill(s), true
	}
	return "", false
}

func AllSkills() []Skill {
	return []Skill{SkillListening, SkillReading, SkillWriting, SkillSpeaking}
}
