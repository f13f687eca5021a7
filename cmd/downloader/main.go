package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/rs/zerolog/log"

	"github.com/callprofiler/callprofiler/internal/logutil"
)

// download fetches report URLs from the channel and writes each response
// body next to the others in the destination directory, named after the last
// path segment of the URL.
func download(client *httpclient.Client, destination string, urls chan string, errorsChan chan error, wg *sync.WaitGroup) {
	defer wg.Done()

	for rawURL := range urls {
		u, err := url.Parse(rawURL)
		if err != nil {
			errorsChan <- err
			continue
		}
		fileName := filepath.Base(u.Path)
		if fileName == "." || fileName == "/" {
			errorsChan <- fmt.Errorf("can't derive a file name from %q", rawURL)
			continue
		}
		path := filepath.Join(destination, fileName+".json")

		if _, err := os.Stat(path); err == nil {
			continue
		}

		resp, err := client.Get(rawURL, nil)
		if err != nil {
			errorsChan <- err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			errorsChan <- fmt.Errorf("fetching %q: unexpected status %d", rawURL, resp.StatusCode)
			continue
		}

		f, err := os.Create(path)
		if err != nil {
			resp.Body.Close()
			errorsChan <- err
			continue
		}

		_, err = io.Copy(f, resp.Body)
		resp.Body.Close()
		if err != nil {
			f.Close()
			errorsChan <- err
			continue
		}

		if err := f.Close(); err != nil {
			errorsChan <- err
			continue
		}

		log.Info().Str("url", rawURL).Str("path", path).Msg("downloaded report")
	}
}

func main() {
	logutil.ConfigureLogger()

	args := os.Args[1:]
	if len(args) != 2 {
		fmt.Println("./downloader <file of report URLs> <destination directory>")
		return
	}

	urlList := args[0]
	destination := args[1]
	file, err := os.Open(urlList)
	if err != nil {
		log.Fatal().Err(err).Msg("can't open URL list")
	}
	defer file.Close()

	if err := os.MkdirAll(destination, 0755); err != nil {
		log.Fatal().Err(err).Msg("can't create destination directory")
	}

	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(30*time.Second),
		httpclient.WithRetryCount(3),
		httpclient.WithRetrier(heimdall.NewRetrier(heimdall.NewConstantBackoff(500*time.Millisecond, 100*time.Millisecond))),
	)

	var wg sync.WaitGroup

	urls := make(chan string)
	errorsChan := make(chan error)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go download(client, destination, urls, errorsChan, &wg)
	}

	go func() {
		for err := range errorsChan {
			log.Err(err).Msg("download failed")
		}
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			urls <- line
		}
	}

	if err := scanner.Err(); err != nil {
		log.Fatal().Err(err).Msg("error reading URL list")
	}

	close(urls)
	wg.Wait()
	close(errorsChan)
}
