package unit

import "regexp"

var containerCommandPattern = regexp.MustCompile(`(?:docker|podman) (?:start|stop) ([\w-]+)`)

// ContainerNames returns the names of containers driven by engine start or
// stop commands in rendered unit text, deduplicated in order of first
// appearance. Removal uses this to find containers a service left behind.
func ContainerNames(content []byte) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, match := range containerCommandPattern.FindAllSubmatch(content, -1) {
		name := string(match[1])
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
