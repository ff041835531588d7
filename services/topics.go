package services

import (
	"math/rand"
	"sort"

	"market-dss/models"
)

// TopicModel fits latent Dirichlet allocation by collapsed Gibbs sampling
// over a bounded bag-of-words vocabulary. A fixed Seed makes fits
// reproducible.
type TopicModel struct {
	K           int
	TopWords    int
	MaxFeatures int
	Iterations  int
	Seed        int64
}

// NewTopicModel returns a model with k topics and the default bounds.
func NewTopicModel(k int) *TopicModel {
	if k < 1 {
		k = 4
	}
	return &TopicModel{K: k, TopWords: 8, MaxFeatures: 1000, Iterations: 50}
}

// vocabulary keeps the maxFeatures most frequent terms, ties broken by
// term, and returns the documents as term ids.
func vocabulary(texts []string, maxFeatures int) ([]string, [][]int) {
	tokens := make([][]string, len(texts))
	freq := make(map[string]int)
	for i, t := range texts {
		tokens[i] = contentTokens(t)
		for _, w := range tokens[i] {
			freq[w]++
		}
	}

	terms := sortedKeys(freq)
	sort.SliceStable(terms, func(i, j int) bool { return freq[terms[i]] > freq[terms[j]] })
	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	id := make(map[string]int, len(terms))
	for i, t := range terms {
		id[t] = i
	}
	docs := make([][]int, len(tokens))
	for d, toks := range tokens {
		for _, w := range toks {
			if v, ok := id[w]; ok {
				docs[d] = append(docs[d], v)
			}
		}
	}
	return terms, docs
}

// Fit extracts K topics from texts. No texts, or no usable terms, yields an
// empty list.
func (m *TopicModel) Fit(texts []string) []models.Topic {
	topics := []models.Topic{}
	if len(texts) == 0 || m.K < 1 {
		return topics
	}
	terms, docs := vocabulary(texts, m.MaxFeatures)
	v := len(terms)
	if v == 0 {
		return topics
	}

	k := m.K
	alpha := 1.0 / float64(k)
	beta := 1.0 / float64(k)
	rng := rand.New(rand.NewSource(m.Seed))

	ndk := make([][]int, len(docs))
	nkw := make([][]int, k)
	for i := range nkw {
		nkw[i] = make([]int, v)
	}
	nk := make([]int, k)
	z := make([][]int, len(docs))
	for d, doc := range docs {
		ndk[d] = make([]int, k)
		z[d] = make([]int, len(doc))
		for i, w := range doc {
			t := rng.Intn(k)
			z[d][i] = t
			ndk[d][t]++
			nkw[t][w]++
			nk[t]++
		}
	}

	p := make([]float64, k)
	vb := float64(v) * beta
	for it := 0; it < m.Iterations; it++ {
		for d, doc := range docs {
			for i, w := range doc {
				t := z[d][i]
				ndk[d][t]--
				nkw[t][w]--
				nk[t]--

				var total float64
				for j := 0; j < k; j++ {
					total += (float64(ndk[d][j]) + alpha) * (float64(nkw[j][w]) + beta) / (float64(nk[j]) + vb)
					p[j] = total
				}
				u := rng.Float64() * total
				t = 0
				for t < k-1 && p[t] < u {
					t++
				}

				z[d][i] = t
				ndk[d][t]++
				nkw[t][w]++
				nk[t]++
			}
		}
	}

	top := m.TopWords
	if top > v {
		top = v
	}
	for t := 0; t < k; t++ {
		order := make([]int, v)
		for i := range order {
			order[i] = i
		}
		counts := nkw[t]
		sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })

		words := make([]string, top)
		for i := 0; i < top; i++ {
			words[i] = terms[order[i]]
		}
		topics = append(topics, models.Topic{Index: t, Words: words})
	}
	return topics
}
