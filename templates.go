package main

import "strings"

var (
	templates = map[string][]byte{
		"plain-text": []byte(plainTextTemplate),
		"json":       []byte(jsonTemplate),
	}
)

type format interface{}
type knownFormat string

func (kf knownFormat) template() []byte {
	return templates[string(kf)]
}

type filePath string
type userDefinedTemplate filePath

func formatFromString(formatSpec string) format {
	const prefix = "path:"
	if strings.HasPrefix(formatSpec, prefix) {
		return userDefinedTemplate(formatSpec[len(prefix):])
	}
	switch formatSpec {
	case "pt", "plain-text":
		return knownFormat("plain-text")
	case "j", "json":
		return knownFormat("json")
	}
	// nil represents unknown format
	return nil
}

const (
	plainTextTemplate = `
{{- printf "Phase %v (%v)" .Spec.Name .Spec.URL }}
{{ printf "Total Requests: %v" .Result.TotalRequests }}
{{ printf "Total Responses: %v" .Result.TotalResponses }}
{{ printf "Failed Requests: %v" .Result.Failed }}
{{ with .Result.LatencyStats -}}
{{ printf "Average Latency: %v ms" (FormatMs .Avg) }}
{{ printf "Min Latency: %v ms" (FormatMs .Min) }}
{{ printf "Max Latency: %v ms" (FormatMs .Max) }}
{{ printf "99th Percentile Latency: %v ms" (FormatMs .P99) }}
{{ else -}}
{{ "No responses received." }}
{{ end -}}
{{ printf "Requests/sec: %.2f" .RequestsPerSecond }}
{{ with .Result -}}
{{ printf "Responses: success - %v, client errors - %v, server errors - %v, others - %v" .Success .ClientErrors .ServerErrors .Others }}
	{{- range .Statuses }}
		{{- printf "\n    %-18v %v" .Status .Count }}
	{{- end }}
	{{- with .Errors }}
		{{- "\nErrors:" }}
		{{- range . }}
			{{- printf "\n    %10v - %v" .Error .Count }}
		{{- end }}
	{{- end }}
{{ end -}}
{{ if WithLatencies -}}
{{ with .Result.LatenciesStats (FloatsToArray 0.5 0.75 0.9 0.95 0.99) -}}
{{ "Latency Distribution" }}
	{{- range $pc, $lat := .Percentiles }}
		{{- printf "\n   %2.0f%% %10s" (Multiply $pc 100) (FormatTimeUsUint64 $lat) }}
	{{- end }}
{{ end -}}
{{ with .Result.RequestsStats (FloatsToArray 0.5 0.75 0.9 0.95 0.99) -}}
{{ printf "Reqs/sec per interval: mean %.2f, stdev %.2f, max %.2f" .Mean .Stddev .Max }}
{{ end -}}
{{ end -}}
{{ printf "Throughput: %v/s" (FormatBinary .Result.Throughput) }}
`
	jsonTemplate = `{"spec":{
{{- with .Spec -}}
"runId":{{ .RunID | printf "%q" }},"name":{{ .Name | printf "%q" -}}
,"url":{{ .URL | printf "%q" }},"method":"{{ .Method }}","httpVersion":{{ .HTTPVersion -}}
,"numberOfConnections":{{ .NumberOfConnections -}}
,"durationSeconds":{{ .Duration.Seconds }},"dryRun":{{ .DryRun }},"async":{{ .Async -}}
,"connectionMode":"{{ .ConnectionMode }}","onFailure":"{{ .OnFailure }}","auth":"{{ .AuthMethod }}"

{{- with .Headers -}}
,"headers":[
{{- range $index, $header :=  . -}}
{{- if ne $index 0 -}},{{- end -}}
{"key":{{ .Key | printf "%q" }},"value":{{ .Value | printf "%q" }}}
{{- end -}}
]
{{- end -}}

,"body":{{ .Body | printf "%q" }}

{{- if .CertPath -}}
,"certPath":{{ .CertPath | printf "%q" }}
{{- end -}}

,"timeoutSeconds":{{ .Timeout.Seconds }}

{{- with .Rate -}}
,"rate":{{ . }}
{{- end -}}
{{- end -}}
},

{{- with .Result -}}
"result":{"bytesRead":{{ .BytesRead -}}
,"bytesWritten":{{ .BytesWritten -}}
,"timeTakenSeconds":{{ .TimeTaken.Seconds -}}

,"totalRequests":{{ .TotalRequests -}}
,"totalResponses":{{ .TotalResponses -}}
,"failed":{{ .Failed -}}
,"success":{{ .Success -}}
,"clientErrors":{{ .ClientErrors -}}
,"serverErrors":{{ .ServerErrors -}}
,"others":{{ .Others -}}

{{- with .Statuses -}}
,"statuses":{
{{- range $index, $s := . -}}
{{- if ne $index 0 -}},{{- end -}}
"{{ .Status }}":{{ .Count }}
{{- end -}}
}
{{- end -}}

{{- with .Errors -}}
,"errors":[
{{- range $index, $error :=  . -}}
{{- if ne $index 0 -}},{{- end -}}
{"description":{{ .Error | printf "%q" }},"count":{{ .Count }}}
{{- end -}}
]
{{- end -}}

{{- with .LatencyStats -}}
,"latencyMs":{"avg":{{ FormatMs .Avg }},"min":{{ FormatMs .Min }},"max":{{ FormatMs .Max }},"p99":{{ FormatMs .P99 }}}
{{- end -}}

{{- if WithLatencies -}}
{{- with .LatenciesStats (FloatsToArray 0.5 0.75 0.9 0.95 0.99) -}}
,"latency":{"mean":{{ .Mean -}}
,"stddev":{{ .Stddev -}}
,"max":{{ .Max -}}
,"percentiles":{
{{- range $pc, $lat := .Percentiles }}
{{- if ne $pc 0.5 -}},{{- end -}}
{{- printf "\"%2.0f\":%d" (Multiply $pc 100) $lat -}}
{{- end -}}
}}
{{- end -}}
{{- end -}}

{{- with .RequestsStats (FloatsToArray 0.5 0.75 0.9 0.95 0.99) -}}
,"rpsIntervals":{"mean":{{ .Mean -}}
,"stddev":{{ .Stddev -}}
,"max":{{ .Max -}}
}
{{- end -}}
{{- end -}}
,"rps":{{ printf "%.2f" .RequestsPerSecond -}}
}}
`
)
