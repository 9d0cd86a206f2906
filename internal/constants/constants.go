package constants

import "time"

// MaxDNSQueries bounds the NAPTR queries issued for one translation,
// counting the initial query.
const MaxDNSQueries = 5

const (
	DefaultEnumSuffix        = ".e164.arpa"
	DefaultDNSTimeoutSeconds = 2
	DefaultDNSPort           = "53"
)

const (
	EnumBackendJSON = "json"
	EnumBackendDNS  = "dns"
)

const (
	ServiceE2USIP     = "e2u+sip"
	ServiceE2UPSTNSIP = "e2u+pstn:sip"
)

const (
	ConnectorHTTP     = "http"
	ConnectorPostgres = "postgres"
	ConnectorRedis    = "redis"
	ConnectorMongoDB  = "mongodb"
	ConnectorNone     = "none"
)

const (
	DefaultHTTPTimeoutSeconds   = 5
	DefaultSubscriberKeyPrefix  = "ifc:"
	DefaultSubscriberCollection = "subscriber_ifcs"
)

const (
	RegistrarStatic = "static"
	RegistrarRedis  = "redis"

	DefaultRegistrarKeyPrefix = "reg:"
)

const (
	TraceSinkLog   = "log"
	TraceSinkKafka = "kafka"
	TraceSinkNone  = "none"

	DefaultTraceBufferSize = 1024
	DefaultTraceTopic      = "routing_trace_events"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)
