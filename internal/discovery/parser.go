package discovery

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var (
	// const paramsDescription = `...`
	descriptionPattern = regexp.MustCompile("(?s)const\\s+\\w*[dD]escription\\s*=\\s*`([^`]*)`")
	// g.Test("name") on the module's registration group; tests of groups
	// built inside a test body use another receiver and are not listed
	testNamePattern = regexp.MustCompile(`\bg\.Test\(\s*"([A-Za-z0-9_,]+)"\s*\)`)
)

// Parser statically extracts metadata from test module sources without
// compiling or running them.
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// FindDescription returns the module description: the first raw-string
// constant whose name ends in "description". Missing constants yield "".
func (p *Parser) FindDescription(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("error reading file %s: %w", filePath, err)
	}
	match := descriptionPattern.FindSubmatch(content)
	if match == nil {
		return "", nil
	}
	return strings.TrimSpace(string(match[1])), nil
}

// FindTestNames finds the names of all tests registered in a module file
func (p *Parser) FindTestNames(filePath string) ([]string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", filePath, err)
	}

	namesMap := make(map[string]bool) // Use map to avoid duplicates
	for _, match := range testNamePattern.FindAllSubmatch(content, -1) {
		namesMap[string(match[1])] = true
	}

	var names []string
	for name := range namesMap {
		names = append(names, name)
	}
	// Sort for consistent output
	sort.Strings(names)

	return names, nil
}

// ReadReadme returns the trimmed contents of a README.txt
func (p *Parser) ReadReadme(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("error reading file %s: %w", filePath, err)
	}
	return strings.TrimSpace(string(content)), nil
}
