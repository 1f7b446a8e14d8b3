package keshavai

import (
	"regexp"
)

// Assistant output may embed generated images either as markdown image
// syntax or as bare URLs with an image extension.
var (
	markdownImagePattern = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^\s)]+)\)`)
	bareImageURLPattern  = regexp.MustCompile(`https?://[^\s<>"')]+\.(?:png|jpe?g|gif|webp)(?:\?[^\s<>"')]*)?`)
)

// ExtractImageURLs scans text for embedded image references and
// returns their URLs in order of appearance, deduplicated.
func ExtractImageURLs(text string) []string {
	var urls []string
	seen := make(map[string]struct{})

	add := func(url string) {
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}

	for _, match := range markdownImagePattern.FindAllStringSubmatch(text, -1) {
		add(match[1])
	}
	for _, url := range bareImageURLPattern.FindAllString(text, -1) {
		add(url)
	}

	return urls
}
