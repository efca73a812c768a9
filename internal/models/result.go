package models

// UploadResult summarizes a successful document ingest.
type UploadResult struct {
	DocID      string                 `json:"doc_id"`
	Filename   string                 `json:"filename"`
	FileType   FileType               `json:"file_type"`
	TextLength int                    `json:"text_length"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// SearchHit is one ranked result of a document similarity search.
type SearchHit struct {
	DocID      string   `json:"doc_id"`
	Similarity float64  `json:"similarity"`
	Filename   string   `json:"filename"`
	FileType   FileType `json:"file_type"`
	Snippet    string   `json:"snippet"`
}

// Match names a document consulted while answering, with its similarity score.
type Match struct {
	Filename   string  `json:"filename"`
	Similarity float64 `json:"similarity"`
}

// Sources records which documents informed an answer: every document linked
// to the thread, plus the corpus-wide search hits that cleared the threshold.
type Sources struct {
	ThreadDocuments []string `json:"thread_documents"`
	Matches         []Match  `json:"matches"`
}

// Empty reports whether no source of either kind was consulted.
func (s Sources) Empty() bool {
	return len(s.ThreadDocuments) == 0 && len(s.Matches) == 0
}

// Answer is the reply of the query pipeline. The pipeline never fails
// outright: errors are folded into Reply.
type Answer struct {
	Reply   string  `json:"reply"`
	Sources Sources `json:"sources_used"`
}
