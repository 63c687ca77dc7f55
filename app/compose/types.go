package compose

import (
	"fmt"

	"birdfeed/app/feed"
)

// Post is a publishable artifact produced from one article. Text
// already includes hashtags and mentions and respects every length
// constraint.
type Post struct {
	Text       string
	Hashtags   []string
	Mentions   []string
	ImageQuery string
	Article    feed.Article
}

// ComposeError reports an article whose content cannot satisfy the
// configured constraints. The caller skips the article.
type ComposeError struct {
	Fingerprint string
	Reason      string
}

func (e *ComposeError) Error() string {
	return fmt.Sprintf("cannot compose post for %s: %s", e.Fingerprint, e.Reason)
}
