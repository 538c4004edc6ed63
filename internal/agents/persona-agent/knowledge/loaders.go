package knowledge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const (
	SourceDialogue = "dialogue"
	SourceFeed     = "feed"
	SourceWeb      = "web"
)

// LoadDialogueDir reads every .txt transcript in dir and keeps the lines
// spoken by speaker ("Speaker: text"). Blank lines separate chunks; each
// non-empty chunk becomes one document.
func LoadDialogueDir(dir, speaker string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []Document
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
		chunks, err := DialogueChunks(f, speaker)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
		for i, c := range chunks {
			docs = append(docs, Document{
				ID:       fmt.Sprintf("%s-%d", name, i),
				SourceID: SourceDialogue,
				Content:  c,
			})
		}
	}
	return docs, nil
}

// DialogueChunks is the per-file half of LoadDialogueDir.
func DialogueChunks(r io.Reader, speaker string) ([]string, error) {
	speaker = strings.TrimSpace(speaker)
	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			flush()
			continue
		}
		who, _, _ := strings.Cut(line, ":")
		if speaker != "" && strings.TrimSpace(who) != speaker {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return chunks, nil
}

// LoadFeed turns every item of an RSS/Atom feed into a document.
func LoadFeed(ctx context.Context, client *http.Client, feedURL string) ([]Document, error) {
	fp := gofeed.NewParser()
	if client != nil {
		fp.Client = client
	}
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	docs := make([]Document, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		body := firstNonEmpty(it.Description, it.Content)
		if strings.Contains(body, "<") {
			if text, err := htmlText(strings.NewReader(body)); err == nil {
				body = text
			}
		}
		text := strings.TrimSpace(strings.Join(nonEmpty(it.Title, body), "\n"))
		if text == "" {
			continue
		}
		id := firstNonEmpty(it.GUID, it.Link, it.Title)
		docs = append(docs, Document{ID: "feed:" + id, SourceID: SourceFeed, Content: text})
	}
	return docs, nil
}

// LoadHTML extracts paragraph text from an HTML page, one document per
// paragraph block.
func LoadHTML(r io.Reader, sourceID string) ([]Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var docs []Document
	doc.Find("p, blockquote, li").Each(func(i int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if len([]rune(text)) < 20 {
			return
		}
		docs = append(docs, Document{
			ID:       fmt.Sprintf("%s#%d", sourceID, i),
			SourceID: SourceWeb,
			Content:  text,
		})
	})
	return docs, nil
}

func htmlText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
