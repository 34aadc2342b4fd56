// Package items holds the closed item vocabulary the bot is allowed to reason
// about, plus the static classification and value tables used by the
// availability policy and execution logging.
package items

import (
	"sort"
	"strings"
)

// Kind is an item kind identifier such as "WHEAT" or "DIAMOND".
type Kind string

// MaxStack is the largest quantity a single listing may carry.
const MaxStack = 64

const defaultValue = 10.0

type class uint8

const (
	classOther class = iota
	classCommon
	classValuable
)

type entry struct {
	class class
	value float64
}

var vocabulary = map[Kind]entry{
	// common
	"COBBLESTONE":  {classCommon, 0.5},
	"DIRT":         {classCommon, 0.5},
	"SAND":         {classCommon, 0.5},
	"GRAVEL":       {classCommon, 0.5},
	"OAK_LOG":      {classCommon, 3.0},
	"SPRUCE_LOG":   {classCommon, 3.0},
	"BIRCH_LOG":    {classCommon, 3.0},
	"JUNGLE_LOG":   {classCommon, 3.0},
	"ACACIA_LOG":   {classCommon, 3.0},
	"DARK_OAK_LOG": {classCommon, 3.0},
	"WHEAT":        {classCommon, 1.5},
	"POTATO":       {classCommon, 1.5},
	"CARROT":       {classCommon, 1.5},
	"BEETROOT":     {classCommon, 1.5},
	"SUGAR_CANE":   {classCommon, 2.0},
	"MELON":        {classCommon, 1.0},
	"PUMPKIN":      {classCommon, 1.0},
	"IRON_INGOT":   {classCommon, 15.0},
	"COAL":         {classCommon, 2.0},
	"STRING":       {classCommon, 1.0},
	"LEATHER":      {classCommon, 3.0},
	"BEEF":         {classCommon, 2.5},
	"PORKCHOP":     {classCommon, 2.5},
	"CHICKEN":      {classCommon, 2.5},
	"MUTTON":       {classCommon, 2.5},
	"RABBIT":       {classCommon, 2.5},
	"COD":          {classCommon, 2.0},
	"SALMON":       {classCommon, 2.0},
	"WHITE_WOOL":   {classCommon, 1.5},

	// valuable
	"DIAMOND":                {classValuable, 100.0},
	"EMERALD":                {classValuable, 50.0},
	"GOLD_INGOT":             {classValuable, 25.0},
	"NETHERITE_INGOT":        {classValuable, 1000.0},
	"ANCIENT_DEBRIS":         {classValuable, 500.0},
	"NETHER_STAR":            {classValuable, 2000.0},
	"DRAGON_EGG":             {classValuable, 10000.0},
	"ELYTRA":                 {classValuable, 5000.0},
	"TOTEM_OF_UNDYING":       {classValuable, 1500.0},
	"ENCHANTED_GOLDEN_APPLE": {classValuable, 800.0},
	"HEART_OF_THE_SEA":       {classValuable, 300.0},
	"NAUTILUS_SHELL":         {classValuable, 150.0},
	"SHULKER_SHELL":          {classValuable, 200.0},
	"PHANTOM_MEMBRANE":       {classValuable, 75.0},
	"BLAZE_ROD":              {classValuable, 40.0},
	"GHAST_TEAR":             {classValuable, 60.0},
	"ENDER_PEARL":            {classValuable, 30.0},
	"WITHER_SKELETON_SKULL":  {classValuable, 500.0},

	// known but unclassified
	"STONE":             {classOther, defaultValue},
	"GLASS":             {classOther, defaultValue},
	"OBSIDIAN":          {classOther, defaultValue},
	"REDSTONE":          {classOther, defaultValue},
	"LAPIS_LAZULI":      {classOther, defaultValue},
	"QUARTZ":            {classOther, defaultValue},
	"BONE":              {classOther, defaultValue},
	"GUNPOWDER":         {classOther, defaultValue},
	"SLIME_BALL":        {classOther, defaultValue},
	"FEATHER":           {classOther, defaultValue},
	"EGG":               {classOther, defaultValue},
	"APPLE":             {classOther, defaultValue},
	"BREAD":             {classOther, defaultValue},
	"GOLDEN_APPLE":      {classOther, defaultValue},
	"EXPERIENCE_BOTTLE": {classOther, defaultValue},
	"NAME_TAG":          {classOther, defaultValue},
	"SADDLE":            {classOther, defaultValue},
	"BOOK":              {classOther, defaultValue},
	"PAPER":             {classOther, defaultValue},
	"CLAY_BALL":         {classOther, defaultValue},
}

// Resolve maps free-form text to a vocabulary entry. Matching is
// case-insensitive, tolerates a "minecraft:" namespace and treats spaces and
// hyphens as underscores.
func Resolve(name string) (Kind, bool) {
	clean := strings.ToUpper(strings.TrimSpace(name))
	clean = strings.TrimPrefix(clean, "MINECRAFT:")
	clean = strings.NewReplacer(" ", "_", "-", "_").Replace(clean)
	if clean == "" {
		return "", false
	}
	k := Kind(clean)
	if _, ok := vocabulary[k]; !ok {
		return "", false
	}
	return k, true
}

// IsCommon reports whether k is in the commonly obtainable classification.
func IsCommon(k Kind) bool {
	return vocabulary[k].class == classCommon
}

// IsValuable reports whether k is a rare, high value item.
func IsValuable(k Kind) bool {
	return vocabulary[k].class == classValuable
}

// EstimatedValue returns the per-item reference value for k.
func EstimatedValue(k Kind) float64 {
	e, ok := vocabulary[k]
	if !ok {
		return defaultValue
	}
	return e.value
}

// DisplayName turns DARK_OAK_LOG into "Dark Oak Log".
func DisplayName(k Kind) string {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(string(k), "_", " ")))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Known returns every vocabulary kind in sorted order.
func Known() []Kind {
	out := make([]Kind, 0, len(vocabulary))
	for k := range vocabulary {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
