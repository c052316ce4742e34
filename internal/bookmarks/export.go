package bookmarks

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

const netscapePreamble = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<!-- This is an automatically generated file.
     It will be read and overwritten.
     DO NOT EDIT! -->
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
`

// ExportJSON renders the full collection as a pretty-printed JSON array.
func ExportJSON(collection []Bookmark) ([]byte, error) {
	if collection == nil {
		collection = []Bookmark{}
	}
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export bookmarks to json: %w", err)
	}
	return data, nil
}

// ExportNetscape renders a flat Netscape bookmark file, one DT line per
// bookmark, with the category carried in TAGS. Folder nesting is not
// reconstructed.
func ExportNetscape(collection []Bookmark) string {
	var sb strings.Builder
	sb.WriteString(netscapePreamble)
	for _, b := range collection {
		var category Category
		if b.Category != nil {
			category = *b.Category
		}
		fmt.Fprintf(&sb, "    <DT><A HREF=\"%s\" ADD_DATE=\"%d\" TAGS=\"%s\">%s</A>\n",
			html.EscapeString(b.URL),
			b.CreatedAt.Unix(),
			html.EscapeString(string(category)),
			html.EscapeString(b.Title))
	}
	sb.WriteString("</DL><p>\n")
	return sb.String()
}
