// Package readings holds the static reading profiles: titles, email subjects and
// the instruction set used to generate each kind of reading.
package readings

import "github.com/portalakashico/portal-backend/pkg/enums"

// InstructionKey names an entry of the instruction table.
type InstructionKey string

const (
	InstructionAkashica InstructionKey = "akashica"
	InstructionVidas    InstructionKey = "vidas"
	InstructionFuturo   InstructionKey = "futuro"
	InstructionAlma     InstructionKey = "alma"
)

// Profile is the immutable configuration of one reading type.
type Profile struct {
	Type           enums.ReadingType
	Title          string
	Subject        string
	Focus          string
	InstructionKey InstructionKey
}

var profiles = map[enums.ReadingType]Profile{
	enums.ReadingTypeAkashica: {
		Type:           enums.ReadingTypeAkashica,
		Title:          "Lectura Akáshica — Canalizada",
		Subject:        "Tu Lectura Akáshica ✨",
		Focus:          "lectura general desde los Registros Akáshicos.",
		InstructionKey: InstructionAkashica,
	},
	enums.ReadingTypeVidas: {
		Type:           enums.ReadingTypeVidas,
		Title:          "Lectura de Vidas Pasadas — Memorias del Alma",
		Subject:        "Tu Lectura de Vidas Pasadas ✨",
		Focus:          "memorias antiguas y patrones que siguen activos.",
		InstructionKey: InstructionVidas,
	},
	enums.ReadingTypeFuturo: {
		Type:           enums.ReadingTypeFuturo,
		Title:          "Lectura de Camino Futuro — Potenciales y Caminos",
		Subject:        "Tu Lectura de Camino Futuro ✨",
		Focus:          "potenciales futuros según la energía actual.",
		InstructionKey: InstructionFuturo,
	},
	enums.ReadingTypeAlma: {
		Type:           enums.ReadingTypeAlma,
		Title:          "Lectura de Alma Gemela & Vínculos del Alma",
		Subject:        "Tu Lectura de Alma Gemela ✨",
		Focus:          "vínculos profundos, patrones afectivos y conexiones.",
		InstructionKey: InstructionAlma,
	},
}

// Resolve maps any reading type, known or not, to exactly one profile.
// Unknown or empty types resolve to the default profile.
func Resolve(readingType enums.ReadingType) Profile {
	if profile, ok := profiles[readingType]; ok {
		return profile
	}
	return profiles[enums.DefaultReadingType]
}

// Default returns the canonical profile.
func Default() Profile {
	return profiles[enums.DefaultReadingType]
}

// Instructions returns the system-level instruction text for the profile.
func (p Profile) Instructions() string {
	if text, ok := instructions[p.InstructionKey]; ok {
		return text
	}
	return instructions[Default().InstructionKey]
}
