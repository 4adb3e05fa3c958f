package utils

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/kartrace/kartrace-go/log"
)

var (
	wsURLPattern   = regexp.MustCompile(`^(?P<proto>ws|wss)://(?P<addr>(?P<host>.*?)(:(?P<port>\d+))?)/.*`)
	dbURLPattern   = regexp.MustCompile(`^postgresql://(.*@)(?P<addr>(?P<host>.*?)(:(?P<port>\d+))?)/.*`)
	natsURLPattern = regexp.MustCompile(`^(nats|tls)://(.*@)?(?P<addr>(?P<host>[^:/]*?)(:(?P<port>\d+))?)/?$`)
)

// WaitForTCP polls addr until a connection succeeds or timeout is reached.
func WaitForTCP(addr string, timeout time.Duration) error {
	return waitFor(addr, timeout, 200*time.Millisecond, func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	})
}

// WaitForHTTPResponse polls url until any http response arrives.
func WaitForHTTPResponse(url string, timeout time.Duration) error {
	cli := &http.Client{}
	return waitFor(url, timeout, 500*time.Millisecond, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return err
		}
		resp, err := cli.Do(req)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	})
}

func waitFor(target string, timeout, pause time.Duration, probe func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	start := time.Now()
	log.Debug("waiting for service",
		log.String("target", target),
		log.Duration("timeout", timeout))
	for {
		if err := probe(ctx); err == nil {
			log.Debug("service available",
				log.String("target", target),
				log.Duration("duration", time.Since(start)))
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s could not be reached after %v", target, timeout)
		case <-time.After(pause):
		}
	}
}

// ExtractFromWebsocketURL returns host:port and scheme of a websocket url.
func ExtractFromWebsocketURL(url string) (addr, proto string) {
	param := namedGroups(wsURLPattern, url)
	if len(param) == 0 {
		return "", ""
	}
	switch {
	case param["port"] != "":
		return param["addr"], param["proto"]
	case param["proto"] == "wss":
		return param["addr"] + ":443", param["proto"]
	default:
		return param["addr"] + ":80", param["proto"]
	}
}

// ExtractFromDBURL returns host:port of a postgresql url, defaulting to 5432.
func ExtractFromDBURL(url string) string {
	return hostPort(namedGroups(dbURLPattern, url), "5432")
}

// ExtractFromNatsURL returns host:port of a nats url, defaulting to 4222.
func ExtractFromNatsURL(url string) string {
	return hostPort(namedGroups(natsURLPattern, url), "4222")
}

func hostPort(param map[string]string, defaultPort string) string {
	if param["addr"] == "" {
		return ""
	}
	if param["port"] != "" {
		return param["addr"]
	}
	return param["addr"] + ":" + defaultPort
}

func namedGroups(re *regexp.Regexp, s string) map[string]string {
	match := re.FindStringSubmatch(s)
	if match == nil {
		return nil
	}
	ret := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i > 0 && name != "" {
			ret[name] = match[i]
		}
	}
	return ret
}
