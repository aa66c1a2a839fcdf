package domain

// Topic is one entry of a TopicOutline. Title is the unique key of the topic;
// Subtopics has set semantics.
type Topic struct {
	Title     string   `json:"title"`
	Subtopics []string `json:"subtopics,omitempty"`
}

// TopicOutline is the hierarchical topic structure detected in a document.
type TopicOutline struct {
	Topics []Topic `json:"topics"`
}

// Empty reports whether the outline carries no topic information.
func (o TopicOutline) Empty() bool {
	return len(o.Topics) == 0
}

// Titles returns the topic titles in outline order.
func (o TopicOutline) Titles() []string {
	titles := make([]string, 0, len(o.Topics))
	for _, t := range o.Topics {
		titles = append(titles, t.Title)
	}
	return titles
}

// Clone returns a deep copy of o. Topics is never nil in the copy.
func (o TopicOutline) Clone() TopicOutline {
	topics := make([]Topic, len(o.Topics))
	for i, t := range o.Topics {
		topics[i] = Topic{Title: t.Title}
		if t.Subtopics != nil {
			topics[i].Subtopics = append([]string(nil), t.Subtopics...)
		}
	}
	return TopicOutline{Topics: topics}
}

// SemanticChunk is a bounded span of source content processed by one backend
// call. Context is a human-readable label for the chunk.
type SemanticChunk struct {
	Content string   `json:"content"`
	Topics  []string `json:"topics,omitempty"`
	Context string   `json:"context"`
}
