// Pattern suggestion logic for generating regex candidates from bulletin clusters.

package main

import (
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// PatternSuggestion represents a suggested regex pattern for a bulletin cluster.
type PatternSuggestion struct {
	ClusterID       int      `json:"cluster_id"`
	BulletinCount   int      `json:"bulletin_count"`
	Kind            string   `json:"kind"`
	SuggestedRegex  string   `json:"suggested_regex"`
	NamedGroups     []string `json:"named_groups"`
	Examples        []string `json:"examples"`
	ExampleIDs      []int64  `json:"example_ids"`
	TemplatePattern string   `json:"template_pattern"`
}

// bulletinInfo holds archive row ID and text for clustering.
type bulletinInfo struct {
	id   int64
	text string
}

// SuggestPatterns clusters unparsed bulletins of a kind by format template and
// suggests a regex pattern for each cluster large enough to warrant a decoder.
func SuggestPatterns(db *sql.DB, kind string, minClusterSize int, maxSuggestions int) []PatternSuggestion {
	rows, err := db.Query(`
		SELECT id, raw_text FROM bulletins
		WHERE kind = ? AND parser_type = 'unparsed'
		LIMIT 5000`, kind)
	if err != nil {
		return nil
	}
	defer rows.Close()

	// Group by template.
	clusters := make(map[string][]bulletinInfo)

	for rows.Next() {
		var id int64
		var text string
		_ = rows.Scan(&id, &text)

		template := normaliseToTemplate(text)
		clusters[template] = append(clusters[template], bulletinInfo{id, text})
	}

	// Sort clusters by size.
	type clusterInfo struct {
		template  string
		bulletins []bulletinInfo
	}
	var sortedClusters []clusterInfo
	for tmpl, items := range clusters {
		if len(items) >= minClusterSize {
			sortedClusters = append(sortedClusters, clusterInfo{tmpl, items})
		}
	}
	sort.Slice(sortedClusters, func(i, j int) bool {
		return len(sortedClusters[i].bulletins) > len(sortedClusters[j].bulletins)
	})

	if len(sortedClusters) > maxSuggestions {
		sortedClusters = sortedClusters[:maxSuggestions]
	}

	// Generate suggestions for each cluster.
	var suggestions []PatternSuggestion
	for i, cluster := range sortedClusters {
		suggestion := generatePatternSuggestion(cluster.bulletins, cluster.template, kind, i+1)
		suggestions = append(suggestions, suggestion)
	}

	return suggestions
}

func generatePatternSuggestion(bulletins []bulletinInfo, template, kind string, clusterID int) PatternSuggestion {
	suggestion := PatternSuggestion{
		ClusterID:       clusterID,
		BulletinCount:   len(bulletins),
		Kind:            kind,
		TemplatePattern: template,
	}

	// Get examples (up to 3).
	for i, b := range bulletins {
		if i >= 3 {
			break
		}
		suggestion.Examples = append(suggestion.Examples, b.text)
		suggestion.ExampleIDs = append(suggestion.ExampleIDs, b.id)
	}

	// Generate regex from the template.
	regex, groups := generateRegexFromTemplate(template)
	suggestion.SuggestedRegex = regex
	suggestion.NamedGroups = groups

	return suggestion
}

// generateRegexFromTemplate creates a regex pattern from a format template.
func generateRegexFromTemplate(template string) (string, []string) {
	// Split template into tokens.
	templateTokens := strings.Fields(strings.ReplaceAll(template, "|", " | "))

	// Build regex by processing template tokens.
	var regexParts []string
	var namedGroups []string
	groupCounts := make(map[string]int)

	for _, tok := range templateTokens {
		if tok == "|" {
			regexParts = append(regexParts, `\s*`)
			continue
		}

		// Get unique group name.
		baseName := tokenToGroupName(tok)
		if baseName != "" {
			groupCounts[baseName]++
			if groupCounts[baseName] > 1 {
				baseName = fmt.Sprintf("%s%d", baseName, groupCounts[baseName])
			}
		}

		switch tok {
		case "<ICAO>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>[A-Z]{4})`, baseName))
		case "<DAYTIME>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>\d{6}Z)`, baseName))
		case "<WIND>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>(?:VRB|\d{3})\d{2,3}(?:G\d{2,3})?(?:KT|MPS))`, baseName))
		case "<VARWIND>":
			regexParts = append(regexParts, `\d{3}V\d{3}`)
		case "<VIS>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>[MP]?\d{1,2}(?:/\d{1,2})?SM)`, baseName))
		case "<RVR>":
			regexParts = append(regexParts, `R\d{2}[LCR]?/\S+`)
		case "<CLOUD>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>(?:FEW|SCT|BKN|OVC)\d{3}(?:CB|TCU)?)`, baseName))
		case "<VV>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>VV\d{3})`, baseName))
		case "<TEMPS>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>M?\d{2}/M?\d{0,2})`, baseName))
		case "<ALTIM>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>[AQ]\d{4})`, baseName))
		case "<VALIDITY>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>\d{4}/\d{4})`, baseName))
		case "<FMTIME>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>FM\d{6})`, baseName))
		case "<FL>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>FL\d{2,3})`, baseName))
		case "<WX>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>[+-]?[A-Z]{2,6})`, baseName))
		case "<LATLON>":
			regexParts = append(regexParts, `[NSEW]\d{2,5}`)
		case "<TIME>":
			namedGroups = append(namedGroups, baseName)
			regexParts = append(regexParts, fmt.Sprintf(`(?P<%s>\d{4}Z?)`, baseName))
		case "<NUM>":
			regexParts = append(regexParts, `\d+`)
		case "<OTHER>":
			regexParts = append(regexParts, `\S+`)
		default:
			// Literal token - escape regex special characters.
			escaped := regexp.QuoteMeta(tok)
			regexParts = append(regexParts, escaped)
		}

		regexParts = append(regexParts, `\s*`)
	}

	// Join and clean up the regex.
	regex := strings.Join(regexParts, "")
	// Remove trailing \s*
	regex = strings.TrimSuffix(regex, `\s*`)
	// Collapse multiple \s* into one
	regex = regexp.MustCompile(`(\\s\*)+`).ReplaceAllString(regex, `\s+`)
	// Make whitespace more flexible
	regex = strings.ReplaceAll(regex, `\s+`, `[\s\t]+`)
	// Add start anchor but not end (bulletins may have trailing remarks)
	regex = `(?s)` + regex

	return regex, namedGroups
}

func tokenToGroupName(token string) string {
	switch token {
	case "<ICAO>":
		return "station"
	case "<DAYTIME>":
		return "issued"
	case "<WIND>":
		return "wind"
	case "<VIS>":
		return "visibility"
	case "<CLOUD>":
		return "cloud"
	case "<VV>":
		return "vertical_vis"
	case "<TEMPS>":
		return "temps"
	case "<ALTIM>":
		return "altimeter"
	case "<VALIDITY>":
		return "validity"
	case "<FMTIME>":
		return "from"
	case "<FL>":
		return "flight_level"
	case "<WX>":
		return "weather"
	case "<TIME>":
		return "time"
	default:
		return ""
	}
}

// TestPattern tests a regex pattern against the unparsed corpus and returns
// match statistics.
func TestPattern(db *sql.DB, pattern string, kind string) (matches int, total int, sampleMatches []int64, sampleNonMatches []int64) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, 0, nil, nil
	}

	rows, err := db.Query(`
		SELECT id, raw_text FROM bulletins
		WHERE kind = ? AND parser_type = 'unparsed'
		LIMIT 2000`, kind)
	if err != nil {
		return 0, 0, nil, nil
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var text string
		_ = rows.Scan(&id, &text)
		total++

		if re.MatchString(text) {
			matches++
			if len(sampleMatches) < 5 {
				sampleMatches = append(sampleMatches, id)
			}
		} else {
			if len(sampleNonMatches) < 5 {
				sampleNonMatches = append(sampleNonMatches, id)
			}
		}
	}

	return matches, total, sampleMatches, sampleNonMatches
}

// PrintSuggestions outputs pattern suggestions in a readable format.
func PrintSuggestions(suggestions []PatternSuggestion, db *sql.DB) {
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("                    PATTERN SUGGESTIONS")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()

	for _, s := range suggestions {
		fmt.Printf("───────────────────────────────────────────────────────────────\n")
		fmt.Printf("CLUSTER %d: %d bulletins (Kind: %s)\n", s.ClusterID, s.BulletinCount, s.Kind)
		fmt.Printf("───────────────────────────────────────────────────────────────\n")
		fmt.Println()

		fmt.Println("Template:")
		fmt.Printf("  %s\n", s.TemplatePattern)
		fmt.Println()

		fmt.Println("Suggested Regex:")
		// Print regex in a more readable format.
		printFormattedRegex(s.SuggestedRegex)
		fmt.Println()

		if len(s.NamedGroups) > 0 {
			fmt.Printf("Capture Groups: %s\n", strings.Join(s.NamedGroups, ", "))
			fmt.Println()
		}

		fmt.Println("Examples:")
		for i, ex := range s.Examples {
			fmt.Printf("  [ID %d]\n", s.ExampleIDs[i])
			printIndentedTrunc(ex, "    ", 300)
			fmt.Println()
		}

		// Test the pattern.
		if db != nil && s.SuggestedRegex != "" {
			matches, total, _, _ := TestPattern(db, s.SuggestedRegex, s.Kind)
			if total > 0 {
				fmt.Printf("Test Results: %d/%d bulletins match (%.1f%%)\n", matches, total, float64(matches)/float64(total)*100)
			}
		}

		fmt.Println()
	}
}

func printFormattedRegex(regex string) {
	// Break long regex into readable chunks.
	if len(regex) <= 80 {
		fmt.Printf("  %s\n", regex)
		return
	}

	// Try to break at logical points.
	parts := strings.Split(regex, `[\s\t]+`)
	var line strings.Builder
	line.WriteString("  ")

	for i, part := range parts {
		if i > 0 {
			if line.Len()+len(part)+10 > 80 {
				fmt.Println(line.String() + `[\s\t]+`)
				line.Reset()
				line.WriteString("    ")
			} else {
				line.WriteString(`[\s\t]+`)
			}
		}
		line.WriteString(part)
	}
	if line.Len() > 2 {
		fmt.Println(line.String())
	}
}

func printIndentedTrunc(text, indent string, maxLen int) {
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		fmt.Printf("%s%s\n", indent, line)
	}
}
