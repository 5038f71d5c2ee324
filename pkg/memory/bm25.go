package memory

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// BM25Index is an inverted index scored with Okapi BM25.
type BM25Index struct {
	mu sync.RWMutex

	k1 float64
	b  float64

	postings   map[string]map[string]struct{} // term -> refs
	termFreqs  map[string]map[string]int      // ref -> term -> count
	docLengths map[string]int

	totalDocs int
	totalLen  int

	stopWords map[string]struct{}
}

// NewBM25Index creates an index with the given saturation (k1) and length
// normalization (b) parameters.
func NewBM25Index(k1, b float64) *BM25Index {
	return &BM25Index{
		k1:         k1,
		b:          b,
		postings:   make(map[string]map[string]struct{}),
		termFreqs:  make(map[string]map[string]int),
		docLengths: make(map[string]int),
		stopWords:  defaultStopWords(),
	}
}

// Index adds or replaces a document.
func (idx *BM25Index) Index(ref, content string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.termFreqs[ref]; exists {
		idx.removeLocked(ref)
	}

	terms := idx.tokenize(content)
	freqs := make(map[string]int, len(terms))
	for _, term := range terms {
		freqs[term]++
	}

	idx.termFreqs[ref] = freqs
	idx.docLengths[ref] = len(terms)
	idx.totalDocs++
	idx.totalLen += len(terms)

	for term := range freqs {
		if idx.postings[term] == nil {
			idx.postings[term] = make(map[string]struct{})
		}
		idx.postings[term][ref] = struct{}{}
	}
}

// Remove drops a document.
func (idx *BM25Index) Remove(ref string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(ref)
}

func (idx *BM25Index) removeLocked(ref string) {
	freqs, exists := idx.termFreqs[ref]
	if !exists {
		return
	}
	for term := range freqs {
		if docs, ok := idx.postings[term]; ok {
			delete(docs, ref)
			if len(docs) == 0 {
				delete(idx.postings, term)
			}
		}
	}
	idx.totalLen -= idx.docLengths[ref]
	idx.totalDocs--
	delete(idx.termFreqs, ref)
	delete(idx.docLengths, ref)
}

// Search returns up to topK refs accepted by accept, best first. Corpus
// statistics cover every indexed document regardless of accept.
func (idx *BM25Index) Search(query string, topK int, accept func(ref string) bool) []Hit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.totalDocs == 0 || topK <= 0 {
		return nil
	}
	terms := idx.tokenize(query)
	if len(terms) == 0 {
		return nil
	}
	avgDL := float64(idx.totalLen) / float64(idx.totalDocs)

	candidates := make(map[string]struct{})
	for _, term := range terms {
		for ref := range idx.postings[term] {
			if accept == nil || accept(ref) {
				candidates[ref] = struct{}{}
			}
		}
	}

	hits := make([]Hit, 0, len(candidates))
	for ref := range candidates {
		if score := idx.scoreLocked(ref, terms, avgDL); score > 0 {
			hits = append(hits, Hit{Ref: ref, Score: score})
		}
	}
	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// Len returns the number of indexed documents.
func (idx *BM25Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.totalDocs
}

func (idx *BM25Index) scoreLocked(ref string, terms []string, avgDL float64) float64 {
	docLen := float64(idx.docLengths[ref])
	freqs := idx.termFreqs[ref]
	score := 0.0

	for _, term := range terms {
		tf := float64(freqs[term])
		if tf == 0 {
			continue
		}
		n := float64(len(idx.postings[term]))
		idf := math.Log((float64(idx.totalDocs)-n+0.5)/(n+0.5) + 1.0)
		score += idf * tf * (idx.k1 + 1) / (tf + idx.k1*(1-idx.b+idx.b*docLen/avgDL))
	}
	return score
}

// tokenize lowercases, splits on non-alphanumerics, drops stop words and
// emits each Han character as its own term.
func (idx *BM25Index) tokenize(text string) []string {
	text = strings.ToLower(text)
	terms := make([]string, 0, len(text)/5)
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		term := current.String()
		if _, stop := idx.stopWords[term]; !stop {
			terms = append(terms, term)
		}
		current.Reset()
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			terms = append(terms, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return terms
}

// Hit is a scored index match.
type Hit struct {
	Ref   string
	Score float64
}

// sortHits orders by score descending, breaking ties by ref for stable output.
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ref < hits[j].Ref
	})
}

func defaultStopWords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "is", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "do", "does", "did", "will", "would", "could",
		"should", "may", "might", "shall", "can", "to", "of", "in", "for",
		"on", "with", "at", "by", "from", "as", "into", "through", "during",
		"before", "after", "above", "below", "between", "out", "off", "over",
		"under", "again", "then", "once", "and", "but", "or", "nor", "not",
		"so", "yet", "both", "each", "all", "any", "more", "most", "other",
		"some", "such", "no", "only", "own", "same", "than", "too", "very",
		"just", "if", "when", "where", "how", "what", "which", "who", "this",
		"that", "these", "those", "i", "me", "my", "we", "our", "you", "your",
		"he", "him", "his", "she", "her", "it", "its", "they", "them", "their",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
