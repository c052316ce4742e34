package bookmarks

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arashthr/markcentral/internal/errors"
	"github.com/arashthr/markcentral/internal/types"
	"github.com/arashthr/markcentral/internal/validations"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// Parse converts a Netscape-format bookmark export into normalized bookmark
// records. Malformed anchors are dropped silently; only a document that
// cannot be parsed at all is an error.
func Parse(htmlContent string, source Source) ([]Bookmark, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return nil, errors.ErrUnparsableExport
	}
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse bookmark export: %w", errors.ErrUnparsableExport)
	}

	now := time.Now()
	var bookmarks []Bookmark

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if b, ok := bookmarkFromAnchor(n, source, now); ok {
				bookmarks = append(bookmarks, b)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return bookmarks, nil
}

func bookmarkFromAnchor(anchor *html.Node, source Source, now time.Time) (Bookmark, bool) {
	href := attrValue(anchor, "href")
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "place:") {
		return Bookmark{}, false
	}

	title := cleanTitle(nodeText(anchor))
	if title == "" {
		title = UntitledPlaceholder
	}

	createdAt := now
	if addDate := attrValue(anchor, "add_date"); addDate != "" {
		if epoch, err := strconv.ParseInt(addDate, 10, 64); err == nil {
			createdAt = time.Unix(epoch, 0).UTC()
		}
	}

	return Bookmark{
		ID:            types.BookmarkId(uuid.NewString()),
		Title:         title,
		URL:           href,
		Category:      nil,
		FolderPath:    folderPath(anchor),
		Source:        source,
		IsFavorite:    false,
		CreatedAt:     createdAt,
		LastUpdatedAt: now,
		LinkStatus:    LinkStatusUnknown,
	}, true
}

// folderPath reconstructs the nested-folder ancestry of an anchor. Each list
// container (DL or UL) whose preceding element sibling is a heading (H3) or
// definition term (DT) contributes that heading's text, outer folders first.
func folderPath(anchor *html.Node) []string {
	var path []string
	for parent := anchor.Parent; parent != nil; parent = parent.Parent {
		if parent.Type != html.ElementNode {
			continue
		}
		if parent.Data != "dl" && parent.Data != "ul" {
			continue
		}
		header := prevElementSibling(parent)
		if header == nil || (header.Data != "h3" && header.Data != "dt") {
			continue
		}
		name := cleanTitle(nodeText(header))
		if name == "" {
			name = "Folder"
		}
		path = append([]string{name}, path...)
	}
	return path
}

func prevElementSibling(n *html.Node) *html.Node {
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode {
			return sib
		}
	}
	return nil
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}

func cleanTitle(text string) string {
	return validations.CleanUpText(text)
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
