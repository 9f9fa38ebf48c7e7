package grouping

import (
	"fmt"
	"sort"

	"github.com/foreman-sh/foreman/internal/models"
)

// Weights controls how much each similarity dimension contributes to a
// pair's overall score (§4.3). Weights need not sum to 1; the score is
// the weighted sum directly.
type Weights struct {
	File       float64
	Dependency float64
	Semantic   float64
	Category   float64
	Component  float64
}

// DefaultWeights mirrors the specification's default weighting.
var DefaultWeights = Weights{
	File:       0.25,
	Dependency: 0.30,
	Semantic:   0.20,
	Category:   0.10,
	Component:  0.15,
}

// Config bounds the clustering pass.
type Config struct {
	Weights      Weights
	Threshold    float64 // minimum pairwise score to link two tasks
	MinGroupSize int
	MaxGroupSize int
}

// DefaultConfig matches the specification's defaults.
var DefaultConfig = Config{
	Weights:      DefaultWeights,
	Threshold:    0.6,
	MinGroupSize: 2,
	MaxGroupSize: 20,
}

// TaskFeatures is the subset of a task's state the engine needs to score
// it against another task.
type TaskFeatures struct {
	TaskID      string
	Title       string
	Description string
	Category    models.Category
	Components  []string // declared component tags, empty if unset
	FilePaths   []string // merged predicted/declared file impact paths
	DependsOn   []string // task ids this task depends on, either direction
}

// Cluster is a candidate grouping of related tasks with its average
// pairwise score and the dimensions that drove it.
type Cluster struct {
	TaskIDs   []string
	AvgScore  float64
	Reasoning []string
}

// Engine clusters task features into grouping suggestions.
type Engine struct {
	config Config
}

// NewEngine constructs an Engine; a zero Config.Threshold falls back to
// DefaultConfig.
func NewEngine(config Config) *Engine {
	if config.Threshold == 0 {
		config = DefaultConfig
	}
	return &Engine{config: config}
}

// pairScore computes the weighted similarity of two tasks across all
// dimensions, returning the total score and the per-dimension
// contributions (for reasoning text).
func (e *Engine) pairScore(a, b TaskFeatures) (float64, map[string]float64) {
	w := e.config.Weights
	contributions := make(map[string]float64)

	fileSim := fileOverlapScore(a.FilePaths, b.FilePaths)
	contributions["file overlap"] = fileSim * w.File

	depSim := dependencyScore(a, b)
	contributions["dependency adjacency"] = depSim * w.Dependency

	semSim := semanticSimilarity(a.Title, a.Description, b.Title, b.Description)
	contributions["semantic similarity"] = semSim * w.Semantic

	catSim := 0.0
	if a.Category == b.Category && a.Category != "" {
		catSim = 1.0
	}
	contributions["category match"] = catSim * w.Category

	compSim := jaccardOfStrings(a.Components, b.Components)
	contributions["component match"] = compSim * w.Component

	total := 0.0
	for _, v := range contributions {
		total += v
	}
	return total, contributions
}

// dependencyScore is the dependency dimension of the pairwise score: 1.0
// when either task directly depends on the other, 0.7 when neither depends
// on the other directly but both depend on some common third task, 0
// otherwise (§4.3).
func dependencyScore(a, b TaskFeatures) float64 {
	for _, id := range a.DependsOn {
		if id == b.TaskID {
			return 1.0
		}
	}
	for _, id := range b.DependsOn {
		if id == a.TaskID {
			return 1.0
		}
	}

	bDeps := make(map[string]struct{}, len(b.DependsOn))
	for _, id := range b.DependsOn {
		bDeps[id] = struct{}{}
	}
	for _, id := range a.DependsOn {
		if _, ok := bDeps[id]; ok {
			return 0.7
		}
	}
	return 0
}

func jaccardOfStrings(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}
	return jaccardSimilarity(setA, setB)
}

// Cluster runs greedy union-find clustering over every pair scoring at
// or above the configured threshold, then splits any cluster exceeding
// MaxGroupSize and drops clusters below MinGroupSize.
func (e *Engine) Cluster(tasks []TaskFeatures) []Cluster {
	n := len(tasks)
	if n < 2 {
		return nil
	}

	uf := newUnionFind(n)
	pairScores := make(map[[2]int]float64)
	pairReasons := make(map[[2]int]map[string]float64)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			score, contributions := e.pairScore(tasks[i], tasks[j])
			if score >= e.config.Threshold {
				uf.union(i, j)
				pairScores[[2]int{i, j}] = score
				pairReasons[[2]int{i, j}] = contributions
			}
		}
	}

	groups := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	var clusters []Cluster
	for _, indices := range groups {
		if len(indices) < e.config.MinGroupSize {
			continue
		}
		for _, chunk := range chunkIndices(indices, e.config.MaxGroupSize) {
			clusters = append(clusters, buildCluster(tasks, chunk, pairScores, pairReasons))
		}
	}

	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].AvgScore > clusters[j].AvgScore
	})
	return clusters
}

func chunkIndices(indices []int, maxSize int) [][]int {
	if maxSize <= 0 || len(indices) <= maxSize {
		return [][]int{indices}
	}
	var chunks [][]int
	for i := 0; i < len(indices); i += maxSize {
		end := i + maxSize
		if end > len(indices) {
			end = len(indices)
		}
		chunks = append(chunks, indices[i:end])
	}
	return chunks
}

func buildCluster(tasks []TaskFeatures, indices []int, pairScores map[[2]int]float64, pairReasons map[[2]int]map[string]float64) Cluster {
	taskIDs := make([]string, len(indices))
	for i, idx := range indices {
		taskIDs[i] = tasks[idx].TaskID
	}

	total, count := 0.0, 0
	dimTotals := make(map[string]float64)
	for i := 0; i < len(indices); i++ {
		for j := i + 1; j < len(indices); j++ {
			key := pairKey(indices[i], indices[j])
			if score, ok := pairScores[key]; ok {
				total += score
				count++
				for dim, v := range pairReasons[key] {
					dimTotals[dim] += v
				}
			}
		}
	}
	avg := 0.0
	if count > 0 {
		avg = total / float64(count)
	}

	reasoning := topReasons(dimTotals)
	return Cluster{TaskIDs: taskIDs, AvgScore: avg, Reasoning: reasoning}
}

func pairKey(i, j int) [2]int {
	if i < j {
		return [2]int{i, j}
	}
	return [2]int{j, i}
}

// topReasons renders the strongest contributing dimensions as
// human-readable reasoning strings, highest contribution first.
func topReasons(dimTotals map[string]float64) []string {
	type kv struct {
		dim   string
		total float64
	}
	var pairs []kv
	for dim, total := range dimTotals {
		if total > 0 {
			pairs = append(pairs, kv{dim, total})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].total > pairs[j].total })

	var reasons []string
	for _, p := range pairs {
		reasons = append(reasons, fmt.Sprintf("%s contributed %.2f", p.dim, p.total))
	}
	return reasons
}

// unionFind is a standard disjoint-set structure with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}
