package anthropic

import (
	"github.com/tidwall/gjson"

	llmstream "github.com/haowjy/meridian-stream-go"
)

// citationsFromJSON converts a citations array. Absent, null and empty
// arrays all yield nil.
func citationsFromJSON(arr gjson.Result) []llmstream.Citation {
	if !arr.IsArray() {
		return nil
	}
	var out []llmstream.Citation
	arr.ForEach(func(_, c gjson.Result) bool {
		out = append(out, citationFromJSON(c))
		return true
	})
	return out
}

// citationFromJSON converts one citation object. The same field mapping is
// used for citations_delta and for citations on a complete text block.
func citationFromJSON(c gjson.Result) llmstream.Citation {
	cite := llmstream.Citation{
		Type:    c.Get("type").String(),
		Snippet: c.Get("cited_text").String(),
		FileID:  optString(c, "file_id"),
	}

	switch cite.Type {
	case "char_location":
		cite.Title = optString(c, "document_title")
		cite.DocumentIndex = optInt(c, "document_index")
		cite.StartOffset = optInt(c, "start_char_index")
		cite.EndOffset = optInt(c, "end_char_index")
	case "page_location":
		cite.Title = optString(c, "document_title")
		cite.DocumentIndex = optInt(c, "document_index")
		cite.StartOffset = optInt(c, "start_page_number")
		cite.EndOffset = optInt(c, "end_page_number")
	case "content_block_location":
		cite.Title = optString(c, "document_title")
		cite.DocumentIndex = optInt(c, "document_index")
		cite.StartOffset = optInt(c, "start_block_index")
		cite.EndOffset = optInt(c, "end_block_index")
	case "web_search_result_location":
		cite.Title = optString(c, "title")
		cite.URL = optString(c, "url")
	case "search_result_location":
		cite.Title = optString(c, "title")
		cite.URL = optString(c, "source")
		cite.DocumentIndex = optInt(c, "search_result_index")
		cite.StartOffset = optInt(c, "start_block_index")
		cite.EndOffset = optInt(c, "end_block_index")
	default:
		cite.Title = firstString(c, "document_title", "title")
		cite.URL = firstString(c, "url", "source")
		cite.DocumentIndex = optInt(c, "document_index")
	}
	return cite
}

func optString(obj gjson.Result, path string) *string {
	v := obj.Get(path)
	if v.Type != gjson.String {
		return nil
	}
	s := v.String()
	return &s
}

func firstString(obj gjson.Result, paths ...string) *string {
	for _, p := range paths {
		if s := optString(obj, p); s != nil {
			return s
		}
	}
	return nil
}

func optInt(obj gjson.Result, path string) *int {
	v := obj.Get(path)
	if v.Type != gjson.Number {
		return nil
	}
	n := int(v.Int())
	return &n
}
