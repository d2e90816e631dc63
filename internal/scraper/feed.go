package scraper

import (
	"encoding/xml"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// atomFeed covers both Atom and RSS 2.0 documents; unknown elements
// are ignored by the decoder so one shape serves both.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type atomEntry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Author    feedAuthor `xml:"author"`
	Links     []atomLink `xml:"link"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type rssItem struct {
	GUID        string     `xml:"guid"`
	Title       string     `xml:"title"`
	Link        string     `xml:"link"`
	Description string     `xml:"description"`
	PubDate     string     `xml:"pubDate"`
	Author      feedAuthor `xml:"creator"`
}

type feedAuthor struct {
	Name string `xml:"name"`
	Text string `xml:",chardata"`
}

func (a feedAuthor) String() string {
	if a.Name != "" {
		return a.Name
	}
	return strings.TrimSpace(a.Text)
}

// parseFeed decodes an Atom or RSS document into scraped items.
// Entries with no usable text fall back to their title.
func parseFeed(data []byte, sourceName string) ([]Item, error) {
	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, err
	}

	var items []Item
	for _, e := range feed.Entries {
		link := ""
		for _, l := range e.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}
		text := stripHTML(firstNonEmpty(e.Content, e.Summary))
		if text == "" {
			text = strings.TrimSpace(e.Title)
		}
		id := e.ID
		if id == "" {
			id = link
		}
		items = append(items, Item{
			ID:          id,
			URL:         link,
			Title:       firstNonEmpty(strings.TrimSpace(e.Title), "Untitled"),
			Text:        text,
			SourceName:  sourceName,
			PublishedAt: parseFeedTime(firstNonEmpty(e.Published, e.Updated)),
			Author:      e.Author.String(),
		})
	}
	for _, it := range feed.Channel.Items {
		text := stripHTML(it.Description)
		if text == "" {
			text = strings.TrimSpace(it.Title)
		}
		id := strings.TrimSpace(it.GUID)
		if id == "" {
			id = it.Link
		}
		items = append(items, Item{
			ID:          id,
			URL:         it.Link,
			Title:       firstNonEmpty(strings.TrimSpace(it.Title), "Untitled"),
			Text:        text,
			SourceName:  sourceName,
			PublishedAt: parseFeedTime(it.PubDate),
			Author:      it.Author.String(),
		})
	}
	return items, nil
}

var feedTimeLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05Z07:00",
}

func parseFeedTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// stripHTML flattens markup to space-joined text.
func stripHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	node, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
