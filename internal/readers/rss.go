package readers

import (
	"cmp"
	"context"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

const CodeRSS = "rss"

// RSSReader decodes RSS and Atom feeds into one record per entry.
type RSSReader struct {
	fetcher Fetcher
	parser  *gofeed.Parser
}

func NewRSSReader(fetcher Fetcher) *RSSReader {
	return &RSSReader{fetcher: fetcher, parser: gofeed.NewParser()}
}

func (r *RSSReader) Code() string     { return CodeRSS }
func (r *RSSReader) DataInRoot() bool { return true }

func (r *RSSReader) Read(ctx context.Context, link string, opts ReadOptions) (ImportedData, error) {
	res, err := r.fetcher.Fetch(ctx, link)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	feed, err := r.parser.Parse(res.Body)
	if err != nil {
		return nil, newReaderError(link, "invalid feed data", err)
	}

	records := make([]any, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		records = append(records, feedItemRecord(item))
		if opts.ExampleData && len(records) >= ExampleDataLimit {
			break
		}
	}
	return NewMemoryData(records, r.DataInRoot()), nil
}

func feedItemRecord(item *gofeed.Item) map[string]any {
	record := map[string]any{
		"id":          cmp.Or(item.GUID, item.Link),
		"title":       item.Title,
		"content":     item.Content,
		"description": item.Description,
		"link":        item.Link,
		"links":       stringList(item.Links),
		"updatedAt":   formatFeedTime(item.UpdatedParsed),
		"createdAt":   formatFeedTime(item.PublishedParsed),
		"authors":     feedAuthors(item),
		"categories":  stringList(item.Categories),
		"enclosure":   nil,
		"image":       nil,
	}

	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		enclosure := item.Enclosures[0]
		record["enclosure"] = map[string]any{
			"url":    enclosure.URL,
			"type":   enclosure.Type,
			"length": enclosure.Length,
		}
	}
	if item.Image != nil && item.Image.URL != "" {
		record["image"] = item.Image.URL
	}
	if media, ok := item.Extensions["media"]; ok {
		record["media"] = mediaRecord(media)
	}
	return record
}

func formatFeedTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func stringList(values []string) []any {
	list := make([]any, 0, len(values))
	for _, v := range values {
		list = append(list, v)
	}
	return list
}

func feedAuthors(item *gofeed.Item) []any {
	authors := []any{}
	for _, author := range item.Authors {
		if author == nil || (author.Name == "" && author.Email == "") {
			continue
		}
		authors = append(authors, map[string]any{"name": author.Name, "email": author.Email})
	}
	if len(authors) == 0 && item.Author != nil && (item.Author.Name != "" || item.Author.Email != "") {
		authors = append(authors, map[string]any{"name": item.Author.Name, "email": item.Author.Email})
	}
	return authors
}

// mediaRecord groups media:content elements by medium and collects
// media:thumbnail elements, following the Media RSS layout.
func mediaRecord(media map[string][]ext.Extension) map[string]any {
	images, videos, audios, thumbs := []any{}, []any{}, []any{}, []any{}

	for _, content := range media["content"] {
		data := mediaData(content)
		switch content.Attrs["medium"] {
		case "", "image":
			images = append(images, data)
		case "video":
			data["duration"] = content.Attrs["duration"]
			data["lang"] = cmp.Or(content.Attrs["language"], content.Attrs["lang"])
			videos = append(videos, data)
		case "audio":
			data["duration"] = content.Attrs["duration"]
			data["lang"] = cmp.Or(content.Attrs["language"], content.Attrs["lang"])
			audios = append(audios, data)
		}
	}
	for _, thumb := range media["thumbnail"] {
		data := mediaData(thumb)
		data["width"] = thumb.Attrs["width"]
		data["height"] = thumb.Attrs["height"]
		thumbs = append(thumbs, data)
	}

	return map[string]any{
		"images": images,
		"videos": videos,
		"audios": audios,
		"thumbs": thumbs,
	}
}

func mediaData(e ext.Extension) map[string]any {
	data := map[string]any{
		"url":  e.Attrs["url"],
		"type": e.Attrs["type"],
		"size": e.Attrs["fileSize"],
	}
	for _, name := range []string{"title", "description"} {
		if children := e.Children[name]; len(children) > 0 {
			data[name] = children[0].Value
		}
	}
	if children := e.Children["thumbnail"]; len(children) > 0 {
		data["thumbnail"] = children[0].Attrs["url"]
	}
	return data
}
