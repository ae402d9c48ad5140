package config

import (
	"fmt"
	"os"
	"regexp"
)

// envVarPattern matches braced references only:
//   - ${VAR}
//   - ${VAR:-default}, used when VAR is unset or empty
//   - ${VAR:?message}, an error when VAR is unset or empty
//
// Bare $VAR is left alone so that scrub patterns such as /^token$/ survive.
var envVarPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)(?:(:[-?])([^}]*))?\}`)

// expandEnv substitutes environment references in a config file.
func expandEnv(input string) (string, error) {
	var expansionErr error

	result := envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		if expansionErr != nil {
			return match
		}

		sub := envVarPattern.FindStringSubmatch(match)
		name, operator, operand := sub[1], sub[2], sub[3]
		value := os.Getenv(name)

		switch operator {
		case ":-":
			if value == "" {
				return operand
			}
			return value
		case ":?":
			if value == "" {
				if operand == "" {
					operand = "required but not set"
				}
				expansionErr = fmt.Errorf("environment variable %s: %s", name, operand)
				return match
			}
			return value
		default:
			return value
		}
	})

	if expansionErr != nil {
		return "", expansionErr
	}
	return result, nil
}
