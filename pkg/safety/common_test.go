package safety

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/sos-safety-service/pkg/db"
	"liyu1981.xyz/sos-safety-service/pkg/safety/mocks"
)

func GetMockSafetyWithMemorySqliteDialector(t *testing.T, useMockIContact, useMockIEvent, useMockIHistory bool) (
	*gomock.Controller,
	*Safety,
	*mocks.MockIContact,
	*mocks.MockIEvent,
	*mocks.MockIHistory,
) {
	ctrl := gomock.NewController(t)

	mockIContact := mocks.NewMockIContact(ctrl)
	mockIEvent := mocks.NewMockIEvent(ctrl)
	mockIHistory := mocks.NewMockIHistory(ctrl)

	dbInstance, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbInstance.Close() })

	safetyInstance := &Safety{Db: *dbInstance}

	contactService := safetyInstance.GetIContact()
	if useMockIContact {
		contactService = mockIContact
	}

	eventService := safetyInstance.GetIEvent()
	if useMockIEvent {
		eventService = mockIEvent
	}

	historyService := safetyInstance.GetIHistory()
	if useMockIHistory {
		historyService = mockIHistory
	}

	safetyInstance.WithServices(ServiceOpts{
		Contact: contactService,
		Event:   eventService,
		History: historyService,
	})

	return ctrl, safetyInstance, mockIContact, mockIEvent, mockIHistory
}

func ParseLogs(r io.Reader) []map[string]any {
	scanner := bufio.NewScanner(r)
	var logs []map[string]any

	for scanner.Scan() {
		var j map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}
