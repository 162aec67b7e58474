// Package tavily provides the web_search tool backed by Tavily search API.
package tavily
