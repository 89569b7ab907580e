package reagentcrawler

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func isLocalEnv(env string) bool {
	return env == "local"
}

// resolveURL turns an href found on a page into an absolute URL.
func resolveURL(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base == nil {
		return ref.String(), ref.IsAbs()
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	return abs.String(), true
}

func getBaseUrl(urlString string) string {
	parsedURL, err := url.Parse(urlString)
	if err != nil || parsedURL.Host == "" {
		return ""
	}
	return parsedURL.Scheme + "://" + parsedURL.Host
}

func ensureScheme(server string) string {
	if strings.Contains(server, "://") {
		return server
	}
	return "http://" + server
}

// urlSuffix returns the part of the URL path after the last sep.
func urlSuffix(rawURL, sep string) string {
	u, err := url.Parse(rawURL)
	path := rawURL
	if err == nil {
		path = u.Path
	}
	path = strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(path, sep)
	if idx < 0 || idx == len(path)-len(sep) {
		return ""
	}
	return path[idx+len(sep):]
}

func writePageContentToFile(siteName, html, url, msg string) error {
	if html == "" {
		html = "No Page Content Found"
	}
	html = strings.TrimSpace(msg) + "\n" + html
	html = fmt.Sprintf("<!-- Time: %v \n Page Url: %s -->\n%s", time.Now(), url, html)
	directory := filepath.Join("storage", "logs", siteName, "html")
	if err := os.MkdirAll(directory, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(directory, generateFilename(url)), []byte(html), 0644)
}

// generateFilename generates a filename based on URL and current date
func generateFilename(rawURL string) string {
	invalidChars := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	for _, char := range invalidChars {
		rawURL = strings.ReplaceAll(rawURL, char, "_")
	}
	if len(rawURL) > 180 {
		rawURL = rawURL[:180]
	}
	currentDate := time.Now().Format("2006-01-02")
	return currentDate + "_" + rawURL + ".html"
}

func generateCsvFileName(siteName string) string {
	return filepath.Join("storage", "data", siteName, siteName+".csv")
}

func inArray(list []int, v int) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
