package conf

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

type envUnmarshaler interface {
	unmarshalEnv(string) error
}

func loadEnvValue(env map[string]string, envKey string, rv reflect.Value) error {
	ev, ok := env[envKey]

	if u, isU := rv.Addr().Interface().(envUnmarshaler); isU {
		if ok {
			if err := u.unmarshalEnv(ev); err != nil {
				return fmt.Errorf("%s: %w", envKey, err)
			}
		}
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		if ok {
			rv.SetString(ev)
		}
		return nil

	case reflect.Int:
		if ok {
			iv, err := strconv.ParseInt(ev, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", envKey, err)
			}
			rv.SetInt(iv)
		}
		return nil

	case reflect.Bool:
		if ok {
			switch strings.ToLower(ev) {
			case "yes", "true":
				rv.SetBool(true)
			case "no", "false":
				rv.SetBool(false)
			default:
				return fmt.Errorf("%s: invalid value '%s'", envKey, ev)
			}
		}
		return nil

	case reflect.Struct:
		rt := rv.Type()
		for i := range rt.NumField() {
			f := rt.Field(i)
			name := yamlTagName(f)
			if !f.IsExported() || name == "-" {
				continue
			}

			err := loadEnvValue(env, envKey+"_"+strings.ToUpper(name), rv.Field(i))
			if err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("unsupported type: %v", rv.Type())
}

// yamlTagName returns the key of a field in the configuration file.
func yamlTagName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		tmp := strings.SplitN(kv, "=", 2)
		if len(tmp) == 2 {
			env[tmp[0]] = tmp[1]
		}
	}
	return env
}

// loadEnv fills a struct with values from PREFIX_YAMLKEY variables.
func loadEnv(prefix string, v interface{}) error {
	return loadEnvValue(environ(), prefix, reflect.ValueOf(v).Elem())
}
