package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"dy_code/abogus"
)

const (
	refParams = "device_platform=webapp&aid=6383&channel=channel_pc_web&update_version_code=170400&pc_client_type=1&version_code=170400&version_name=17.4.0&cookie_enabled=true&screen_width=1536&screen_height=864&browser_language=zh-CN&browser_platform=Win32&browser_name=Chrome&browser_version=123.0.0.0&browser_online=true&engine_name=Blink&engine_version=123.0.0.0&os_name=Windows&os_version=10&cpu_core_num=16&device_memory=8&platform=PC&downlink=10&effective_type=4g&round_trip_time=50&webid=7362810250930783783&msToken=VkDUvz1y24CppXSl80iFPr6ez-3FiizcwD7fI1OqBt6IICq9RWG7nCvxKb8IVi55mFd-wnqoNkXGnxHrikQb4PuKob5Q-YhDp5Um215JzlBszkUyiEvR"
	refUA     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	refTS     = int64(1678886400000)

	expectedDetail = "xyRhBmhfDk2p6DS65I2LfY3q6fN3YgbA0trEMD2fpVVWiL39HMYD9exoWN4v3Y8joT/IIeYjy4hbT3ohrQ2y8qwf9W0L/25gsDSkKl12so0j53inCLf/E0iE5hsAtFH8svr4iKi8owICSYyhldAJ5kIlO62-zo0/9-j="
	expectedReply  = "xyRhBmhfDk2p6DS65I2LfY3q6fN3YBbA0trEMD2fpVvbiL39HMYD9exEWN4v3Y8joT/IIeYjy4hbT3ohrQ2y8qwf9W0L/25gsDSkKl12so0j53inCLf/E0iE5hsAtFH8svr4iKi8owICSYyhldAJ5kIlO62-zo0/95b="
)

func main() {
	verbose := flag.Bool("v", false, "dump the sign buffer")
	flag.Parse()

	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	s := abogus.NewSigner(
		abogus.WithFixedTimestamp(refTS),
		abogus.WithRandomValues(0.123, 0.456, 0.789),
		abogus.WithLogger(logger),
	)

	ok := true
	for _, c := range []struct {
		name     string
		sign     func(string, string) (string, error)
		expected string
	}{
		{"detail", s.SignDetail, expectedDetail},
		{"reply", s.SignReply, expectedReply},
	} {
		got, err := c.sign(refParams, refUA)
		if err != nil {
			logger.Fatalf("%s: %v", c.name, err)
		}
		fmt.Printf("[%s]\n", c.name)
		fmt.Printf("Expected:  %s\n", c.expected)
		fmt.Printf("Generated: %s\n", got)
		if got == c.expected {
			fmt.Println("Signature MATCHES")
		} else {
			fmt.Println("Signature MISMATCH")
			ok = false
		}
	}
	if !ok {
		os.Exit(1)
	}
}
