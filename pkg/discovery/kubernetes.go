package discovery

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	DefaultNamespace     = "default"
	DefaultLabelSelector = "app.kubernetes.io/component=database"
)

// KubernetesDiscovery treats labelled Services as database instances and
// reports their cluster DNS names as endpoints.
type KubernetesDiscovery struct {
	clientset     kubernetes.Interface
	namespace     string
	labelSelector string
}

// NewKubernetesDiscovery wraps an existing clientset.
func NewKubernetesDiscovery(clientset kubernetes.Interface, namespace, labelSelector string) *KubernetesDiscovery {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if labelSelector == "" {
		labelSelector = DefaultLabelSelector
	}
	return &KubernetesDiscovery{
		clientset:     clientset,
		namespace:     namespace,
		labelSelector: labelSelector,
	}
}

// NewKubernetesDiscoveryFromEnvironment uses the in-cluster config when
// running in a pod and falls back to the default kubeconfig otherwise.
func NewKubernetesDiscoveryFromEnvironment(namespace, labelSelector string) (*KubernetesDiscovery, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{})
		config, err = kubeConfig.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get kubernetes config: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return NewKubernetesDiscovery(clientset, namespace, labelSelector), nil
}

// ListInstances lists matching Services in API order.
func (d *KubernetesDiscovery) ListInstances(ctx context.Context) ([]Instance, error) {
	list, err := d.clientset.CoreV1().Services(d.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: d.labelSelector,
	})
	if err != nil {
		return nil, &BackendError{Backend: "Kubernetes", Err: err}
	}

	instances := make([]Instance, 0, len(list.Items))
	for _, svc := range list.Items {
		inst := Instance{
			Identifier: svc.Name,
			Engine:     svc.Labels["app.kubernetes.io/name"],
			Status:     "available",
			Address:    fmt.Sprintf("%s.%s.svc.cluster.local", svc.Name, svc.Namespace),
		}
		if len(svc.Spec.Ports) > 0 {
			inst.Port = svc.Spec.Ports[0].Port
		}
		instances = append(instances, inst)
	}
	return instances, nil
}
