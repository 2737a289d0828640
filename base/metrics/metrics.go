package metrics

const (
	ClientIncompleteReadsH = "The total number of responses read only partially"
	ClientIncompleteReadsN = "tinyntp_client_incomplete_reads"
	ClientOffsetH          = "The offset in seconds applied by the most recent full offset synchronization"
	ClientOffsetN          = "tinyntp_client_offset_seconds"
	ClientReqsSentH        = "The total number of requests sent"
	ClientReqsSentN        = "tinyntp_client_reqs_sent"
	ClientRespsAcceptedH   = "The total number of responses accepted"
	ClientRespsAcceptedN   = "tinyntp_client_resps_accepted"
	ClientShortPacketsH    = "The total number of responses shorter than an NTP packet"
	ClientShortPacketsN    = "tinyntp_client_short_packets"
	ClientSyncsH           = "The total number of synchronization points committed"
	ClientSyncsN           = "tinyntp_client_syncs"
	ClientTimeoutsH        = "The total number of requests that timed out"
	ClientTimeoutsN        = "tinyntp_client_timeouts"

	ServerPktsReceivedH = "The total number of packets received"
	ServerPktsReceivedN = "tinyntp_server_pkts_received"
	ServerReqsAcceptedH = "The total number of requests accepted"
	ServerReqsAcceptedN = "tinyntp_server_reqs_accepted"
	ServerReqsServedH   = "The total number of requests served"
	ServerReqsServedN   = "tinyntp_server_reqs_served"
)
