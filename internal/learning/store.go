// Package learning implements the durable usage record that biases future
// rankings. The store is process-wide mutable state behind a single lock;
// every mutation is flushed to disk so a crash never loses more than the
// in-flight write.
package learning

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"skillrouter/internal/logging"
)

const (
	maxRecentSkills  = 10
	maxRecentQueries = 10

	// recentWindow is how many of the most recent skills earn the
	// recent-usage boost.
	recentWindow = 5

	// boostCap bounds the combined learning boost. The matcher applies its
	// own outer ceiling on top of this.
	boostCap = 0.10
)

// Usage is the per-skill usage record.
type Usage struct {
	Count         int      `json:"count"`
	SuccessCount  int      `json:"success_count"`
	RecentQueries []string `json:"recent_queries"`
}

// Data is the persisted learning record set.
type Data struct {
	SkillUsage       map[string]Usage          `json:"skill_usage"`
	ArgumentPatterns map[string]map[string]int `json:"argument_patterns"` // "skill.arg" -> value -> count
	RecentSkills     []string                  `json:"recent_skills"`     // most recent first
}

func emptyData() Data {
	return Data{
		SkillUsage:       make(map[string]Usage),
		ArgumentPatterns: make(map[string]map[string]int),
	}
}

// Store is the process-wide learning store.
type Store struct {
	mu   sync.RWMutex
	path string
	data Data
}

// Open loads (or initializes) the learning store at path. A missing or
// corrupted file resets to an empty record set rather than failing.
func Open(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		path = filepath.Join(home, ".skillrouter", "learning.json")
	}

	s := &Store{path: path, data: emptyData()}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logging.Learning("no learning data at %s, starting empty", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read learning data: %w", err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		logging.LearningWarn("corrupted learning data at %s, resetting: %v", path, err)
		return s, nil
	}
	if data.SkillUsage == nil {
		data.SkillUsage = make(map[string]Usage)
	}
	if data.ArgumentPatterns == nil {
		data.ArgumentPatterns = make(map[string]map[string]int)
	}
	s.data = data

	logging.Learning("loaded learning data: %d skills tracked", len(data.SkillUsage))
	return s, nil
}

// TrackExecution records one execution atomically: usage counters, the
// recent-skills list, the skill's recent queries, and the argument value
// histogram. Called for failed executions too.
func (s *Store) TrackExecution(query, skillName string, success bool, args map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	usage := s.data.SkillUsage[skillName]
	usage.Count++
	if success {
		usage.SuccessCount++
	}

	if !containsFold(usage.RecentQueries, query) {
		usage.RecentQueries = append(usage.RecentQueries, query)
		if len(usage.RecentQueries) > maxRecentQueries {
			usage.RecentQueries = usage.RecentQueries[len(usage.RecentQueries)-maxRecentQueries:]
		}
	}
	s.data.SkillUsage[skillName] = usage

	s.touchRecentSkill(skillName)

	for arg, value := range args {
		key := skillName + "." + arg
		hist := s.data.ArgumentPatterns[key]
		if hist == nil {
			hist = make(map[string]int)
			s.data.ArgumentPatterns[key] = hist
		}
		hist[value]++
	}

	s.saveLocked()

	logging.LearningDebug("tracked %s success=%v (count=%d)", skillName, success, usage.Count)
}

// touchRecentSkill moves skillName to the front of the recent list,
// deduplicated and bounded.
func (s *Store) touchRecentSkill(skillName string) {
	recent := s.data.RecentSkills[:0]
	for _, name := range s.data.RecentSkills {
		if name != skillName {
			recent = append(recent, name)
		}
	}
	recent = append([]string{skillName}, recent...)
	if len(recent) > maxRecentSkills {
		recent = recent[:maxRecentSkills]
	}
	s.data.RecentSkills = recent
}

// BoostFor computes the confidence boost learned usage earns for a skill:
// +0.05 if among the 5 most recent skills, +0.03 if the success rate
// exceeds 0.90, +0.02 if the query matches a recent query for the skill.
// Capped at 0.10.
func (s *Store) BoostFor(skillName, query string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	boost := 0.0

	for i, name := range s.data.RecentSkills {
		if i >= recentWindow {
			break
		}
		if name == skillName {
			boost += 0.05
			break
		}
	}

	usage := s.data.SkillUsage[skillName]
	if usage.Count > 0 && float64(usage.SuccessCount)/float64(usage.Count) > 0.90 {
		boost += 0.03
	}

	queryLower := strings.ToLower(query)
	for _, q := range usage.RecentQueries {
		qLower := strings.ToLower(q)
		if strings.Contains(queryLower, qLower) || strings.Contains(qLower, queryLower) {
			boost += 0.02
			break
		}
	}

	if boost > boostCap {
		boost = boostCap
	}
	return boost
}

// CommonArgument returns the most frequent historical value for
// "skill.arg", ties broken deterministically by value order.
func (s *Store) CommonArgument(skillName, argName string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist := s.data.ArgumentPatterns[skillName+"."+argName]
	if len(hist) == 0 {
		return "", false
	}

	best, bestCount := "", -1
	for value, count := range hist {
		if count > bestCount || (count == bestCount && value < best) {
			best, bestCount = value, count
		}
	}
	return best, true
}

// RecentSkills returns up to limit most recently used skill names.
func (s *Store) RecentSkills(limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > len(s.data.RecentSkills) {
		limit = len(s.data.RecentSkills)
	}
	out := make([]string, limit)
	copy(out, s.data.RecentSkills[:limit])
	return out
}

// SuccessRate returns successes/executions for a skill, 0 when untracked.
func (s *Store) SuccessRate(skillName string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usage := s.data.SkillUsage[skillName]
	if usage.Count == 0 {
		return 0
	}
	return float64(usage.SuccessCount) / float64(usage.Count)
}

// Snapshot returns a deep copy of the current record set.
func (s *Store) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := emptyData()
	for name, usage := range s.data.SkillUsage {
		u := usage
		u.RecentQueries = append([]string(nil), usage.RecentQueries...)
		out.SkillUsage[name] = u
	}
	for key, hist := range s.data.ArgumentPatterns {
		h := make(map[string]int, len(hist))
		for v, c := range hist {
			h[v] = c
		}
		out.ArgumentPatterns[key] = h
	}
	out.RecentSkills = append([]string(nil), s.data.RecentSkills...)
	return out
}

// Stats summarizes the store for CLI display.
type Stats struct {
	SkillsTracked   int
	TotalExecutions int
	MostUsedSkill   string
	RecentSkills    int
	ArgumentKeys    int
}

// GetStats computes summary statistics.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		SkillsTracked: len(s.data.SkillUsage),
		RecentSkills:  len(s.data.RecentSkills),
		ArgumentKeys:  len(s.data.ArgumentPatterns),
	}

	mostUsed := -1
	for name, usage := range s.data.SkillUsage {
		stats.TotalExecutions += usage.Count
		if usage.Count > mostUsed || (usage.Count == mostUsed && name < stats.MostUsedSkill) {
			mostUsed = usage.Count
			stats.MostUsedSkill = name
		}
	}
	return stats
}

// Reset discards all learning data and persists the empty record set.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = emptyData()
	s.saveLocked()
	logging.Learning("learning data reset")
}

// Save flushes the current state to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		logging.LearningWarn("failed to create learning dir: %v", err)
		return err
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		logging.LearningWarn("failed to save learning data: %v", err)
		return err
	}
	return nil
}

func containsFold(list []string, item string) bool {
	for _, v := range list {
		if strings.EqualFold(v, item) {
			return true
		}
	}
	return false
}
