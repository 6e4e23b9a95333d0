package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"
)

// Development origins cover this port range on both loopback hosts.
const (
	devPortMin = 3000
	devPortMax = 8999
)

var loopbackHosts = []string{"localhost", "127.0.0.1"}

// StaticOrigins lists the origins allowed in every environment: the common
// frontend dev servers and the three ports following the backend port.
func StaticOrigins(backendPort int) []string {
	ports := []int{3000, 8080, backendPort + 1, backendPort + 2, backendPort + 3}
	origins := make([]string, 0, len(ports)*len(loopbackHosts))
	for _, host := range loopbackHosts {
		for _, port := range ports {
			origins = append(origins, fmt.Sprintf("http://%s:%d", host, port))
		}
	}
	return origins
}

// OriginAllowed reports whether origin may call the API.
func OriginAllowed(origin string, backendPort int, production bool) bool {
	for _, allowed := range StaticOrigins(backendPort) {
		if origin == allowed {
			return true
		}
	}
	if production {
		return false
	}
	return isDevOrigin(origin)
}

func isDevOrigin(origin string) bool {
	for _, host := range loopbackHosts {
		raw, ok := strings.CutPrefix(origin, "http://"+host+":")
		if !ok {
			continue
		}
		port, err := strconv.Atoi(raw)
		if err != nil || strconv.Itoa(port) != raw {
			return false
		}
		return port >= devPortMin && port <= devPortMax
	}
	return false
}

func newCORS(backendPort int, production bool) *cors.Cors {
	return cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return OriginAllowed(origin, backendPort, production)
		},
		AllowCredentials: true,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:     []string{"*"},
		ExposedHeaders:     []string{"*"},
		OptionsPassthrough: true,
	})
}
