package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	sosGrpc "liyu1981.xyz/sos-safety-service/pkg/grpc"
	"liyu1981.xyz/sos-safety-service/pkg/models"
	"liyu1981.xyz/sos-safety-service/pkg/remote"
)

var maxUsers int = 1000
var httpHostPort string = "127.0.0.1:1080"
var grpcHostPort string = "127.0.0.1:50051"

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

// Each simulated user mirrors SOS events straight into the docstore over
// gRPC, while the agent's HTTP surface takes location reports and event
// reads.
func main() {
	userIDs := make([]string, maxUsers)
	for i := range maxUsers {
		userIDs[i] = uuid.NewString()
	}
	fmt.Printf("generated %v user IDs\n", maxUsers)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	clients := make([]*sosGrpc.Client, maxUsers)
	for i, userID := range userIDs {
		client, err := sosGrpc.Dial(grpcHostPort, userID)
		if err != nil {
			log.Fatal("Failed to connect to gRPC server:", err)
		}
		defer client.Close()
		clients[i] = client
	}

	fmt.Printf("gRPC clients created\n")

	var startTime time.Time
	var usedTime time.Duration

	remoteIDs := make([]string, maxUsers)
	startTime = time.Now()
	wg := sync.WaitGroup{}
	for i := range maxUsers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink := remote.NewDocumentSink(clients[i], userIDs[i], nil)
			id, err := sink.Create(context.Background(), randomEvent())
			if err != nil {
				fmt.Printf("\nerror: %v\n", err)
				return
			}
			remoteIDs[i] = id
			fmt.Printf("\rcreated SOS event for user %v", i)
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\rcreated SOS events for %v users: used time=%v seconds, throughput=%v action/second\n",
		maxUsers, usedTime.Seconds(), float64(maxUsers)/usedTime.Seconds(),
	)

	startTime = time.Now()
	wg = sync.WaitGroup{}
	for i := range maxUsers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doAction(clients[i], userIDs[i], remoteIDs[i])
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\n\rdid actions for %v users: used time=%v seconds, throughput=%v action/second\n",
		maxUsers, usedTime.Seconds(), float64(maxUsers*3)/usedTime.Seconds(),
	)
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	val := min + rnd.Float64()*(max-min)
	rndMu.Unlock()
	multiplier := math.Pow10(decimal)
	return math.Round(val*multiplier) / multiplier
}

func rndSleep() time.Duration {
	rndMu.Lock()
	defer rndMu.Unlock()
	return time.Duration(100+rnd.Int31n(1000)) * time.Millisecond
}

func randomEvent() *models.SosEvent {
	return &models.SosEvent{
		Type:             models.TriggerTypes[int(rndFloat64(0, float64(len(models.TriggerTypes)-1), 0))],
		Latitude:         rndFloat64(-90, 90, 6),
		Longitude:        rndFloat64(-180, 180, 6),
		Timestamp:        time.Now(),
		NotifiedContacts: []uint{},
	}
}

func doAction(client *sosGrpc.Client, userID, remoteID string) {
	actions := []func(){
		genReportLocationAction(),
		genGetLatestEventAction(),
		genResolveRemoteAction(client, userID, remoteID),
	}
	actionNames := []string{
		"ReportLocation",
		"GetLatestEvent",
		"ResolveRemote",
	}
	rndMu.Lock()
	rnd.Shuffle(len(actions), func(i, j int) {
		actions[i], actions[j] = actions[j], actions[i]
		actionNames[i], actionNames[j] = actionNames[j], actionNames[i]
	})
	rndMu.Unlock()
	for index, action := range actions {
		action()
		fmt.Printf("\rexecuted action %v for user %v", actionNames[index], userID)
		time.Sleep(rndSleep())
	}
}

func genReportLocationAction() func() {
	return func() {
		payload := map[string]float64{
			"latitude":  rndFloat64(-90, 90, 6),
			"longitude": rndFloat64(-180, 180, 6),
			"accuracy":  rndFloat64(1, 50, 1),
		}
		jsonData, _ := json.Marshal(payload)
		resp, err := http.Post(fmt.Sprintf("http://%s/location", httpHostPort), "application/json", bytes.NewBuffer(jsonData))
		if err != nil {
			fmt.Printf("\nerror: %v\n", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			fmt.Printf("\nresponse status code != 200: %v\n", resp.Status)
		}
	}
}

func genGetLatestEventAction() func() {
	return func() {
		resp, err := http.Get(fmt.Sprintf("http://%s/events/latest", httpHostPort))
		if err != nil {
			fmt.Printf("\nerror: %v\n", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
			fmt.Printf("\nresponse status code unexpected: %v\n", resp.Status)
		}
	}
}

func genResolveRemoteAction(client *sosGrpc.Client, userID, remoteID string) func() {
	return func() {
		if remoteID == "" {
			return
		}
		event := randomEvent()
		resolvedAt := time.Now()
		responseTime := resolvedAt.Sub(event.Timestamp)
		event.IsResolved = true
		event.ResolvedAt = &resolvedAt
		event.ResponseTime = &responseTime

		sink := remote.NewDocumentSink(client, userID, nil)
		if err := sink.Update(context.Background(), remoteID, event); err != nil {
			fmt.Printf("\nerror: %v\n", err)
		}
	}
}
